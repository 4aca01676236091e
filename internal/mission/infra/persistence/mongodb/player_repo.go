package mongodb

import (
	"context"
	"errors"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/errs"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultPlayerCollectionName = "players"

const (
	OpLoadPlayer      = "repo.player.LoadPlayer"
	OpSnapshot        = "repo.player.Snapshot"
	OpHoldings        = "repo.player.Holdings"
	OpAdjustArmy      = "repo.player.AdjustArmy"
	OpAdjustResources = "repo.player.AdjustResources"
)

var errNilPlayerColl = errors.New("mongodb player collection is nil")

type PlayerRepo struct {
	coll *mongo.Collection
}

var (
	_ port.StateRepository = (*PlayerRepo)(nil)
	_ port.PlayerLedger    = (*PlayerRepo)(nil)
)

func NewPlayerRepo(db *mongo.Database) *PlayerRepo {
	if db == nil {
		return &PlayerRepo{}
	}
	return &PlayerRepo{coll: db.Collection(defaultPlayerCollectionName)}
}

func (r *PlayerRepo) LoadPlayer(ctx context.Context, username string) (*entity.PlayerSnapshot, error) {
	if r == nil || r.coll == nil {
		return nil, errs.Wrap(OpLoadPlayer, errs.KindInfra, errNilPlayerColl, nil)
	}
	var doc entity.PlayerSnapshot
	err := r.coll.FindOne(ctx, bson.M{"_id": username}).Decode(&doc)
	if err == nil {
		return &doc, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, entity.ErrPlayerNotFound
	}
	return nil, errs.Wrap(OpLoadPlayer, errs.KindInfra, err, map[string]any{"username": username})
}

func (r *PlayerRepo) Snapshot(ctx context.Context, s *entity.PlayerSnapshot) error {
	if s == nil {
		return nil
	}
	if r == nil || r.coll == nil {
		return errs.Wrap(OpSnapshot, errs.KindInfra, errNilPlayerColl, nil)
	}
	if s.Username == "" {
		return errs.Wrap(OpSnapshot, errs.KindInfra, entity.ErrPlayerNotFound, nil)
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": s.Username}, s, options.Replace().SetUpsert(true))
	if err != nil {
		return errs.Wrap(OpSnapshot, errs.KindInfra, err, map[string]any{"username": s.Username, "version": s.Version})
	}
	return nil
}

func (r *PlayerRepo) Holdings(ctx context.Context, username string) (domain.Army, domain.Resources, error) {
	if r == nil || r.coll == nil {
		return nil, nil, errs.Wrap(OpHoldings, errs.KindInfra, errNilPlayerColl, nil)
	}
	var doc struct {
		Army      domain.Army      `bson:"army"`
		Resources domain.Resources `bson:"resources"`
	}
	opts := options.FindOne().SetProjection(bson.M{"army": 1, "resources": 1})
	err := r.coll.FindOne(ctx, bson.M{"_id": username}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, port.ErrNotFound
	}
	if err != nil {
		return nil, nil, errs.Wrap(OpHoldings, errs.KindInfra, err, map[string]any{"username": username})
	}
	if doc.Army == nil {
		doc.Army = domain.Army{}
	}
	if doc.Resources == nil {
		doc.Resources = domain.Resources{}
	}
	return doc.Army, doc.Resources, nil
}

func (r *PlayerRepo) AdjustArmy(ctx context.Context, username string, delta domain.Army) error {
	filter, update, ok := conditionalInc(bson.M{"_id": username}, "army", delta)
	return r.apply(ctx, OpAdjustArmy, username, filter, update, ok)
}

func (r *PlayerRepo) AdjustResources(ctx context.Context, username string, delta domain.Resources) error {
	filter, update, ok := conditionalInc(bson.M{"_id": username}, "resources", delta)
	return r.apply(ctx, OpAdjustResources, username, filter, update, ok)
}

// apply 条件不满足时区分玩家不存在与余量不足。
func (r *PlayerRepo) apply(ctx context.Context, op, username string, filter, update bson.M, ok bool) error {
	if r == nil || r.coll == nil {
		return errs.Wrap(op, errs.KindInfra, errNilPlayerColl, nil)
	}
	if !ok {
		return nil
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return errs.Wrap(op, errs.KindInfra, err, map[string]any{"username": username})
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": username})
	if err != nil {
		return errs.Wrap(op, errs.KindInfra, err, map[string]any{"username": username})
	}
	if n == 0 {
		return port.ErrNotFound
	}
	return port.ErrInsufficient
}
