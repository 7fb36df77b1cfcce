package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/garage-service/internal/domain"
	"github.com/tazhibayda/garage-service/internal/query"
)

func nowMillis() int64 { return time.Now().UTC().UnixMilli() }

// FindGarageByID is the standard read path: soft-deleted documents do
// not exist here. Returns (nil, nil) when absent.
func (s *Store) FindGarageByID(ctx context.Context, id primitive.ObjectID) (*domain.Garage, error) {
	var g domain.Garage
	err := s.colGarages.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &g, nil
}

// ExecutePlan runs a built query plan: filter, sort, projection,
// limit, then population of user references. No match is an empty
// slice, not an error.
func (s *Store) ExecutePlan(ctx context.Context, p *query.Plan) ([]domain.Garage, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.garage.list",
		tracer.Tag("limit", p.Limit),
	)
	defer sp.Finish()

	cur, err := s.colGarages.Find(ctx, p.Filter,
		options.Find().
			SetSort(p.Sort).
			SetProjection(p.Projection).
			SetLimit(p.Limit),
	)
	if err != nil {
		sp.SetTag("error", err)
		return nil, mapErr(err)
	}
	defer cur.Close(ctx)

	out := []domain.Garage{}
	for cur.Next(ctx) {
		var g domain.Garage
		if err := cur.Decode(&g); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, g)
	}
	if err := cur.Err(); err != nil {
		sp.SetTag("error", err)
		return nil, mapErr(err)
	}

	if len(p.Populate) > 0 {
		if err := s.populate(ctx, out, p.Populate); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// populate resolves created_by/updated_by into embedded users. A
// dangling reference leaves the field null; it never fails the query.
func (s *Store) populate(ctx context.Context, garages []domain.Garage, fields []string) error {
	wantCreator, wantUpdater := false, false
	for _, f := range fields {
		switch f {
		case "createdBy":
			wantCreator = true
		case "updatedBy":
			wantUpdater = true
		}
	}

	ids := map[primitive.ObjectID]bool{}
	for i := range garages {
		if wantCreator && !garages[i].CreatedBy.IsZero() {
			ids[garages[i].CreatedBy] = true
		}
		if wantUpdater && garages[i].UpdatedBy != nil {
			ids[*garages[i].UpdatedBy] = true
		}
	}
	if len(ids) == 0 {
		return nil
	}

	keys := make([]primitive.ObjectID, 0, len(ids))
	for id := range ids {
		keys = append(keys, id)
	}
	cur, err := s.colUsers.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return mapErr(err)
	}
	defer cur.Close(ctx)

	users := map[primitive.ObjectID]*domain.User{}
	for cur.Next(ctx) {
		var u domain.User
		if err := cur.Decode(&u); err != nil {
			return mapErr(err)
		}
		users[u.ID] = &u
	}
	if err := cur.Err(); err != nil {
		return mapErr(err)
	}

	for i := range garages {
		if wantCreator {
			garages[i].Creator = users[garages[i].CreatedBy]
		}
		if wantUpdater && garages[i].UpdatedBy != nil {
			garages[i].Updater = users[*garages[i].UpdatedBy]
		}
	}
	return nil
}

func (s *Store) InsertGarage(ctx context.Context, g *domain.Garage) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.garage.insert",
		tracer.Tag("code", g.Code),
	)
	defer sp.Finish()

	if g.Services == nil {
		g.Services = []domain.GarageService{}
	}
	res, err := s.colGarages.InsertOne(ctx, g)
	if err != nil {
		sp.SetTag("error", err)
		return mapErr(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		g.ID = oid
	}
	return nil
}

// UpdateGarage applies patch to a live garage and stamps updated_by /
// updated_date in the same atomic update. Absent or soft-deleted
// answers ErrNotFound.
func (s *Store) UpdateGarage(ctx context.Context, id primitive.ObjectID, patch bson.M, actor primitive.ObjectID) (*domain.Garage, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.garage.update",
		tracer.Tag("garage_id", id.Hex()),
	)
	defer sp.Finish()

	set := bson.M{}
	for k, v := range patch {
		set[k] = v
	}
	set["updated_by"] = actor
	set["updated_date"] = nowMillis()

	res := s.colGarages.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var g domain.Garage
	if err := res.Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		sp.SetTag("error", err)
		return nil, mapErr(err)
	}
	return &g, nil
}

// SoftDeleteGarage marks the document deleted; it is never removed.
// Returns false when nothing alive matched.
func (s *Store) SoftDeleteGarage(ctx context.Context, id primitive.ObjectID, actor primitive.ObjectID) (bool, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.garage.soft_delete",
		tracer.Tag("garage_id", id.Hex()),
	)
	defer sp.Finish()

	res, err := s.colGarages.UpdateOne(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{"$set": bson.M{
			"is_deleted":   true,
			"updated_by":   actor,
			"updated_date": nowMillis(),
		}},
	)
	if err != nil {
		sp.SetTag("error", err)
		return false, mapErr(err)
	}
	return res.ModifiedCount == 1, nil
}

// AddServices appends sub-resources to the embedded sequence and
// returns the resulting list.
func (s *Store) AddServices(ctx context.Context, id primitive.ObjectID, svcs []domain.GarageService, actor primitive.ObjectID) ([]domain.GarageService, error) {
	for i := range svcs {
		if svcs[i].ID.IsZero() {
			svcs[i].ID = primitive.NewObjectID()
		}
	}
	res := s.colGarages.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{
			"$push": bson.M{"services": bson.M{"$each": svcs}},
			"$set":  bson.M{"updated_by": actor, "updated_date": nowMillis()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var g domain.Garage
	if err := res.Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, mapErr(err)
	}
	return g.Services, nil
}

// RemoveServices pulls sub-resources by id. Ids not present are per-id
// no-ops; the pre-image of the atomic update tells us which ids were
// actually removed. Returns the resulting list plus the removed ids.
func (s *Store) RemoveServices(ctx context.Context, id primitive.ObjectID, serviceIDs []primitive.ObjectID, actor primitive.ObjectID) ([]domain.GarageService, []primitive.ObjectID, error) {
	res := s.colGarages.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "is_deleted": false},
		bson.M{
			"$pull": bson.M{"services": bson.M{"_id": bson.M{"$in": serviceIDs}}},
			"$set":  bson.M{"updated_by": actor, "updated_date": nowMillis()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	)
	var before domain.Garage
	if err := res.Decode(&before); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, mapErr(err)
	}

	requested := map[primitive.ObjectID]bool{}
	for _, sid := range serviceIDs {
		requested[sid] = true
	}
	removed := []primitive.ObjectID{}
	remaining := []domain.GarageService{}
	for _, svc := range before.Services {
		if requested[svc.ID] {
			removed = append(removed, svc.ID)
		} else {
			remaining = append(remaining, svc)
		}
	}
	return remaining, removed, nil
}
