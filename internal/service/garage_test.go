package service_test

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/garage-service/internal/domain"
	"github.com/tazhibayda/garage-service/internal/query"
	"github.com/tazhibayda/garage-service/internal/service"
)

type fakeGarages struct {
	inserted  *domain.Garage
	lastPatch bson.M
	lastPlan  *query.Plan
}

func (f *fakeGarages) FindGarageByID(ctx context.Context, id primitive.ObjectID) (*domain.Garage, error) {
	return nil, nil
}

func (f *fakeGarages) ExecutePlan(ctx context.Context, p *query.Plan) ([]domain.Garage, error) {
	f.lastPlan = p
	return []domain.Garage{}, nil
}

func (f *fakeGarages) InsertGarage(ctx context.Context, g *domain.Garage) error {
	g.ID = primitive.NewObjectID()
	f.inserted = g
	return nil
}

func (f *fakeGarages) UpdateGarage(ctx context.Context, id primitive.ObjectID, patch bson.M, actor primitive.ObjectID) (*domain.Garage, error) {
	f.lastPatch = patch
	return &domain.Garage{ID: id}, nil
}

func (f *fakeGarages) SoftDeleteGarage(ctx context.Context, id, actor primitive.ObjectID) (bool, error) {
	return true, nil
}

func (f *fakeGarages) AddServices(ctx context.Context, id primitive.ObjectID, svcs []domain.GarageService, actor primitive.ObjectID) ([]domain.GarageService, error) {
	return svcs, nil
}

func (f *fakeGarages) RemoveServices(ctx context.Context, id primitive.ObjectID, ids []primitive.ObjectID, actor primitive.ObjectID) ([]domain.GarageService, []primitive.ObjectID, error) {
	return nil, nil, nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validInput() service.GarageInput {
	return service.GarageInput{
		Code: intPtr(1),
		Name: strPtr("G1"),
		Location: &domain.Location{
			GoogleID:    "place-1",
			Coordinates: domain.Coordinates{Lat: 10.5, Lng: 106.6},
		},
	}
}

func TestCreate_StampsOwnership(t *testing.T) {
	store := &fakeGarages{}
	s := &service.Garages{Store: store}
	actor := primitive.NewObjectID()

	g, err := s.Create(context.Background(), validInput(), actor)
	if err != nil {
		t.Fatal(err)
	}
	if g.CreatedBy != actor {
		t.Fatalf("created_by = %v, want %v", g.CreatedBy, actor)
	}
	if g.CreatedDate == 0 {
		t.Fatal("created_date not stamped")
	}
	if g.IsDeleted {
		t.Fatal("new garage must not be deleted")
	}
	if g.UpdatedBy != nil || g.UpdatedDate != nil {
		t.Fatalf("updated fields must be absent on create: %+v", g)
	}
	if g.Services == nil || len(g.Services) != 0 {
		t.Fatalf("services = %v, want empty sequence", g.Services)
	}
}

func TestCreate_Validation(t *testing.T) {
	s := &service.Garages{Store: &fakeGarages{}}
	actor := primitive.NewObjectID()

	cases := map[string]service.GarageInput{
		"missing code":     {Name: strPtr("G"), Location: validInput().Location},
		"missing name":     {Code: intPtr(1), Location: validInput().Location},
		"blank name":       {Code: intPtr(1), Name: strPtr("   "), Location: validInput().Location},
		"missing location": {Code: intPtr(1), Name: strPtr("G")},
		"missing place id": {Code: intPtr(1), Name: strPtr("G"), Location: &domain.Location{}},
	}
	for name, in := range cases {
		if _, err := s.Create(context.Background(), in, actor); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: err = %v, want validation", name, err)
		}
	}
}

func TestUpdate_PatchShape(t *testing.T) {
	store := &fakeGarages{}
	s := &service.Garages{Store: store}
	actor := primitive.NewObjectID()
	id := primitive.NewObjectID()

	_, err := s.Update(context.Background(), id, service.GarageInput{
		Name:    strPtr("renamed"),
		Address: strPtr("12 Main st"),
	}, actor)
	if err != nil {
		t.Fatal(err)
	}
	if store.lastPatch["name"] != "renamed" || store.lastPatch["address"] != "12 Main st" {
		t.Fatalf("patch = %v", store.lastPatch)
	}
	if _, ok := store.lastPatch["code"]; ok {
		t.Fatal("absent fields must not enter the patch")
	}
}

func TestUpdate_EmptyPatch(t *testing.T) {
	s := &service.Garages{Store: &fakeGarages{}}
	_, err := s.Update(context.Background(), primitive.NewObjectID(), service.GarageInput{}, primitive.NewObjectID())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestAddServices_Validation(t *testing.T) {
	s := &service.Garages{Store: &fakeGarages{}}
	id := primitive.NewObjectID()
	actor := primitive.NewObjectID()

	if _, err := s.AddServices(context.Background(), id, nil, actor); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty: err = %v", err)
	}
	if _, err := s.AddServices(context.Background(), id, []service.ServiceInput{{Name: " "}}, actor); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank name: err = %v", err)
	}
	if _, err := s.AddServices(context.Background(), id, []service.ServiceInput{{Name: "wash", Price: -1}}, actor); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("negative price: err = %v", err)
	}
}

func TestRemoveServices_EmptyIDs(t *testing.T) {
	s := &service.Garages{Store: &fakeGarages{}}
	_, _, err := s.RemoveServices(context.Background(), primitive.NewObjectID(), nil, primitive.NewObjectID())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestList_BuildsPlanWithSoftDeleteGuard(t *testing.T) {
	store := &fakeGarages{}
	s := &service.Garages{Store: store}

	_, err := s.List(context.Background(), query.ListQuery{
		SortBy: []query.SortKey{{Field: "code", Order: query.OrderAsc}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if store.lastPlan == nil || store.lastPlan.Filter["is_deleted"] != false {
		t.Fatalf("plan = %+v", store.lastPlan)
	}
}
