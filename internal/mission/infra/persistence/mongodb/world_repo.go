package mongodb

import (
	"context"
	"errors"
	"fmt"

	"Vikings/internal/mission/app/port"
	"Vikings/internal/mission/entity"
	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/mission/errs"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultWorldCollectionName = "world_cells"

const (
	OpEntity     = "repo.world.Entity"
	OpClaimHome  = "repo.world.ClaimHome"
	OpCapture    = "repo.world.Capture"
	OpOwned      = "repo.world.Owned"
	OpRaiseLevel = "repo.world.RaiseLevel"
	OpPlace      = "repo.world.Place"
)

const homeSearchRadius = 200

var errNilWorldColl = errors.New("mongodb world collection is nil")

// cellDoc 一个被持久化的格子，_id 为坐标 key。
type cellDoc struct {
	Key              string `bson:"_id"`
	domain.Coord     `bson:",inline"`
	domain.MapEntity `bson:",inline"`
}

type WorldRepo struct {
	coll *mongo.Collection
}

var _ port.WorldStore = (*WorldRepo)(nil)

func NewWorldRepo(db *mongo.Database) *WorldRepo {
	if db == nil {
		return &WorldRepo{}
	}
	return &WorldRepo{coll: db.Collection(defaultWorldCollectionName)}
}

func (r *WorldRepo) ready(op string) error {
	if r == nil || r.coll == nil {
		return errs.Wrap(op, errs.KindInfra, errNilWorldColl, nil)
	}
	return nil
}

// Entity 未持久化的格子回落到按坐标生成的资源点。
func (r *WorldRepo) Entity(ctx context.Context, c domain.Coord) (*domain.MapEntity, error) {
	if err := r.ready(OpEntity); err != nil {
		return nil, err
	}
	var doc cellDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": c.Key()}).Decode(&doc)
	if err == nil {
		return &doc.MapEntity, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.Wrap(OpEntity, errs.KindInfra, err, map[string]any{"coord": c.Key()})
	}
	if v := domain.VirtualEntity(c); v != nil {
		return v, nil
	}
	return nil, port.ErrNotFound
}

// ClaimHome 插入即占位，主键冲突说明格子已被占用，继续向外找。
func (r *WorldRepo) ClaimHome(ctx context.Context, username string) (domain.Coord, error) {
	if err := r.ready(OpClaimHome); err != nil {
		return domain.Coord{}, err
	}
	var existing cellDoc
	err := r.coll.FindOne(ctx, bson.M{"type": domain.KindCity, "user": username}).Decode(&existing)
	if err == nil {
		return existing.Coord, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Coord{}, errs.Wrap(OpClaimHome, errs.KindInfra, err, map[string]any{"username": username})
	}

	var home domain.Coord
	var insertErr error
	found := domain.SpiralFrom(domain.WorldCenter, homeSearchRadius, func(c domain.Coord) bool {
		if domain.VirtualEntity(c) != nil {
			return false
		}
		doc := cellDoc{Key: c.Key(), Coord: c, MapEntity: domain.MapEntity{
			Kind: domain.KindCity, Name: username + "'s City", User: username, Level: 1,
		}}
		_, err := r.coll.InsertOne(ctx, doc)
		if err == nil {
			home = c
			return true
		}
		if mongo.IsDuplicateKeyError(err) {
			return false
		}
		insertErr = err
		return true
	})
	if insertErr != nil {
		return domain.Coord{}, errs.Wrap(OpClaimHome, errs.KindInfra, insertErr, map[string]any{"username": username})
	}
	if !found {
		return domain.Coord{}, entity.ErrNoFreeCell
	}
	return home, nil
}

// Capture 资源点首次被占领时把生成的属性一起落库。
func (r *WorldRepo) Capture(ctx context.Context, c domain.Coord, owner string, garrison domain.Army, at int64) error {
	if err := r.ready(OpCapture); err != nil {
		return err
	}
	meta := map[string]any{"coord": c.Key(), "owner": owner}
	update := bson.M{"$set": bson.M{
		"owner":       owner,
		"garrison":    domain.NewGarrison(garrison),
		"captured_at": at,
	}}
	if v := domain.VirtualEntity(c); v != nil {
		update["$setOnInsert"] = bson.M{
			"x": c.X, "y": c.Y,
			"type": v.Kind, "name": v.Name, "level": v.Level, "resource": v.Resource,
		}
	}
	filter := bson.M{"_id": c.Key(), "type": domain.KindResource}
	res, err := r.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(update["$setOnInsert"] != nil))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("capture %s: %w", c.Key(), port.ErrConflict)
	}
	if err != nil {
		return errs.Wrap(OpCapture, errs.KindInfra, err, meta)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (r *WorldRepo) Owned(ctx context.Context, owner string) ([]domain.MapEntity, error) {
	if err := r.ready(OpOwned); err != nil {
		return nil, err
	}
	cur, err := r.coll.Find(ctx, bson.M{"type": domain.KindResource, "owner": owner}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, errs.Wrap(OpOwned, errs.KindInfra, err, map[string]any{"owner": owner})
	}
	var docs []cellDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errs.Wrap(OpOwned, errs.KindInfra, err, map[string]any{"owner": owner})
	}
	out := make([]domain.MapEntity, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.MapEntity)
	}
	return out, nil
}

func (r *WorldRepo) RaiseLevel(ctx context.Context, c domain.Coord, owner string, from int) error {
	if err := r.ready(OpRaiseLevel); err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": c.Key(), "owner": owner, "level": from},
		bson.M{"$inc": bson.M{"level": 1}},
	)
	if err != nil {
		return errs.Wrap(OpRaiseLevel, errs.KindInfra, err, map[string]any{"coord": c.Key(), "owner": owner})
	}
	if res.MatchedCount == 0 {
		return port.ErrConflict
	}
	return nil
}

func (r *WorldRepo) Place(ctx context.Context, c domain.Coord, e domain.MapEntity) error {
	if err := r.ready(OpPlace); err != nil {
		return err
	}
	_, err := r.coll.InsertOne(ctx, cellDoc{Key: c.Key(), Coord: c, MapEntity: e})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("place %s: %w", c.Key(), port.ErrConflict)
	}
	if err != nil {
		return errs.Wrap(OpPlace, errs.KindInfra, err, map[string]any{"coord": c.Key()})
	}
	return nil
}

// placeFortress 覆盖写入要塞的四个格子。
func (r *WorldRepo) placeFortress(ctx context.Context, c *domain.Clan) error {
	f := c.Fortress
	for i, cell := range domain.FortressCells(f.Coord()) {
		doc := cellDoc{Key: cell.Key(), Coord: cell, MapEntity: domain.MapEntity{
			Kind:       domain.KindFortress,
			Name:       "[" + c.Tag + "] Fortress",
			Level:      f.Level,
			FortressID: c.ID,
			ClanID:     c.ID,
			Center:     i == 0,
		}}
		if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true)); err != nil {
			return err
		}
	}
	return nil
}
