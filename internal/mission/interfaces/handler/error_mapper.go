package handler

import (
	"Vikings/internal/mission/app"
	"Vikings/internal/shared/transport"
)

func init() {
	transport.RegisterCode(app.CodeInvalidUnits, transport.InvalidParam)
	transport.RegisterCode(app.CodeInsufficientUnits, transport.Conflict)
	transport.RegisterCode(app.CodeInsufficientResources, transport.Conflict)
	transport.RegisterCode(app.CodeInvalidTarget, transport.InvalidParam)
	transport.RegisterCode(app.CodeNotClanLeader, transport.Forbidden)
	transport.RegisterCode(app.CodeNoFortress, transport.NotFound)
	transport.RegisterCode(app.CodeInsufficientGarrison, transport.Conflict)
	transport.RegisterCode(app.CodeQueueBusy, transport.Conflict)
	transport.RegisterCode(app.CodeRequirementNotMet, transport.Forbidden)
	transport.RegisterCode(app.CodeUnknownItem, transport.NotFound)
	transport.RegisterCode(app.CodeAttackRejected, transport.Forbidden)
	transport.RegisterCode(app.CodeMaxLevel, transport.Conflict)
	transport.RegisterCode(app.CodeQuestClaimed, transport.Conflict)
}
