package mongodb

import (
	"context"
	"errors"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/errs"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultClanCollectionName = "clans"

const (
	OpClan           = "repo.clan.Clan"
	OpClanOf         = "repo.clan.ClanOf"
	OpAdjustGarrison = "repo.clan.AdjustGarrison"
	OpAdjustTreasury = "repo.clan.AdjustTreasury"
	OpSaveClan       = "repo.clan.Save"
)

var errNilClanColl = errors.New("mongodb clan collection is nil")

type ClanRepo struct {
	coll  *mongo.Collection
	world *WorldRepo
}

var _ port.ClanStore = (*ClanRepo)(nil)

func NewClanRepo(db *mongo.Database) *ClanRepo {
	if db == nil {
		return &ClanRepo{}
	}
	return &ClanRepo{coll: db.Collection(defaultClanCollectionName), world: NewWorldRepo(db)}
}

func (r *ClanRepo) ready(op string) error {
	if r == nil || r.coll == nil {
		return errs.Wrap(op, errs.KindInfra, errNilClanColl, nil)
	}
	return nil
}

func (r *ClanRepo) Clan(ctx context.Context, id string) (*domain.Clan, error) {
	return r.findOne(ctx, OpClan, bson.M{"_id": id}, id)
}

func (r *ClanRepo) ClanOf(ctx context.Context, username string) (*domain.Clan, error) {
	return r.findOne(ctx, OpClanOf, bson.M{"$or": bson.A{
		bson.M{"leader": username},
		bson.M{"members": username},
	}}, username)
}

func (r *ClanRepo) findOne(ctx context.Context, op string, filter bson.M, key string) (*domain.Clan, error) {
	if err := r.ready(op); err != nil {
		return nil, err
	}
	var c domain.Clan
	err := r.coll.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, errs.Wrap(op, errs.KindInfra, err, map[string]any{"key": key})
	}
	return &c, nil
}

// AdjustGarrison 单条 $inc，负向分量带 $gte 条件，并发扣减不会超卖。
func (r *ClanRepo) AdjustGarrison(ctx context.Context, clanID string, delta domain.Army) error {
	base := bson.M{"_id": clanID, "fortress": bson.M{"$ne": nil}}
	filter, update, ok := conditionalInc(base, "fortress.garrison", delta)
	return r.apply(ctx, OpAdjustGarrison, clanID, filter, update, ok)
}

func (r *ClanRepo) AdjustTreasury(ctx context.Context, clanID string, delta domain.Resources) error {
	filter, update, ok := conditionalInc(bson.M{"_id": clanID}, "treasury", delta)
	return r.apply(ctx, OpAdjustTreasury, clanID, filter, update, ok)
}

func (r *ClanRepo) apply(ctx context.Context, op, clanID string, filter, update bson.M, ok bool) error {
	if err := r.ready(op); err != nil {
		return err
	}
	if !ok {
		return nil
	}
	meta := map[string]any{"clan_id": clanID}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return errs.Wrap(op, errs.KindInfra, err, meta)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": clanID})
	if err != nil {
		return errs.Wrap(op, errs.KindInfra, err, meta)
	}
	if n == 0 {
		return port.ErrNotFound
	}
	return port.ErrInsufficient
}

func (r *ClanRepo) Save(ctx context.Context, c *domain.Clan) error {
	if err := r.ready(OpSaveClan); err != nil {
		return err
	}
	if c == nil || c.ID == "" {
		return port.ErrNotFound
	}
	meta := map[string]any{"clan_id": c.ID}
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c, options.Replace().SetUpsert(true)); err != nil {
		return errs.Wrap(OpSaveClan, errs.KindInfra, err, meta)
	}
	if c.Fortress != nil && r.world != nil && r.world.coll != nil {
		if err := r.world.placeFortress(ctx, c); err != nil {
			return errs.Wrap(OpSaveClan, errs.KindInfra, err, meta)
		}
	}
	return nil
}
