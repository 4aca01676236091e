package app

import "Vikings/modules/kit/errx"

type Code = errx.Code

const (
	CodeMissingFields    Code = "AUTH_MISSING_FIELDS"
	CodeAttackerNotFound Code = "AUTH_ATTACKER_NOT_FOUND"
	CodeNotInClan        Code = "AUTH_NOT_IN_CLAN"
	CodeNotLeader        Code = "AUTH_NOT_LEADER"
	CodeNoFortress       Code = "AUTH_NO_FORTRESS"
	CodeSelfAttack       Code = "AUTH_SELF_ATTACK"
	CodeUserNotFound     Code = "AUTH_USER_NOT_FOUND"
)

var (
	ErrMissingFields    = errx.NewBiz(CodeMissingFields, "Missing fields")
	ErrAttackerNotFound = errx.NewBiz(CodeAttackerNotFound, "Attacker not found")
	ErrNotInClan        = errx.NewBiz(CodeNotInClan, "Not in a clan")
	ErrNotLeader        = errx.NewBiz(CodeNotLeader, "Only leaders can attack from fortress")
	ErrNoFortress       = errx.NewBiz(CodeNoFortress, "No fortress built")
	ErrSelfAttack       = errx.NewBiz(CodeSelfAttack, "Cannot attack yourself")
	ErrUserNotFound     = errx.NewBiz(CodeUserNotFound, "User not found")

	ErrStorage = errx.NewSys(errx.CodeUnavailable, "Battle Error")
)
