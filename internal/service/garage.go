package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/garage-service/internal/domain"
	"github.com/tazhibayda/garage-service/internal/query"
)

type GarageStore interface {
	FindGarageByID(ctx context.Context, id primitive.ObjectID) (*domain.Garage, error)
	ExecutePlan(ctx context.Context, p *query.Plan) ([]domain.Garage, error)
	InsertGarage(ctx context.Context, g *domain.Garage) error
	UpdateGarage(ctx context.Context, id primitive.ObjectID, patch bson.M, actor primitive.ObjectID) (*domain.Garage, error)
	SoftDeleteGarage(ctx context.Context, id, actor primitive.ObjectID) (bool, error)
	AddServices(ctx context.Context, id primitive.ObjectID, svcs []domain.GarageService, actor primitive.ObjectID) ([]domain.GarageService, error)
	RemoveServices(ctx context.Context, id primitive.ObjectID, serviceIDs []primitive.ObjectID, actor primitive.ObjectID) ([]domain.GarageService, []primitive.ObjectID, error)
}

// GarageInput is the create/update shape. Pointers so an update patch
// can tell "absent" from "zero".
type GarageInput struct {
	Code        *int             `json:"code"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Address     *string          `json:"address"`
	Location    *domain.Location `json:"location"`
}

type ServiceInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// Garages orchestrates garage reads and mutations: input validation,
// ownership stamping and delegation to the store.
type Garages struct {
	Store GarageStore
}

func (s *Garages) List(ctx context.Context, q query.ListQuery) ([]domain.Garage, error) {
	plan, err := query.Build(ctx, q, s.Store.FindGarageByID)
	if err != nil {
		return nil, err
	}
	return s.Store.ExecutePlan(ctx, plan)
}

func (s *Garages) Create(ctx context.Context, in GarageInput, actor primitive.ObjectID) (*domain.Garage, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	g := &domain.Garage{
		Code:        *in.Code,
		Name:        strings.TrimSpace(*in.Name),
		Location:    *in.Location,
		Services:    []domain.GarageService{},
		CreatedBy:   actor,
		CreatedDate: time.Now().UTC().UnixMilli(),
		IsDeleted:   false,
	}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.Address != nil {
		g.Address = *in.Address
	}
	if err := s.Store.InsertGarage(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Garages) Update(ctx context.Context, id primitive.ObjectID, in GarageInput, actor primitive.ObjectID) (*domain.Garage, error) {
	patch, err := updatePatch(in)
	if err != nil {
		return nil, err
	}
	return s.Store.UpdateGarage(ctx, id, patch, actor)
}

func (s *Garages) AddServices(ctx context.Context, id primitive.ObjectID, inputs []ServiceInput, actor primitive.ObjectID) ([]domain.GarageService, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: services must not be empty", domain.ErrValidation)
	}
	svcs := make([]domain.GarageService, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.Name) == "" {
			return nil, fmt.Errorf("%w: service name is required", domain.ErrValidation)
		}
		if in.Price < 0 {
			return nil, fmt.Errorf("%w: service price must not be negative", domain.ErrValidation)
		}
		svcs = append(svcs, domain.GarageService{
			Name:        strings.TrimSpace(in.Name),
			Price:       in.Price,
			Description: in.Description,
		})
	}
	return s.Store.AddServices(ctx, id, svcs, actor)
}

func (s *Garages) RemoveServices(ctx context.Context, id primitive.ObjectID, serviceIDs []primitive.ObjectID, actor primitive.ObjectID) ([]domain.GarageService, []primitive.ObjectID, error) {
	if len(serviceIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: serviceIds must not be empty", domain.ErrValidation)
	}
	return s.Store.RemoveServices(ctx, id, serviceIDs, actor)
}

// Delete soft-deletes; the document stays for audit. Returns false
// when nothing alive matched so the boundary can answer 404.
func (s *Garages) Delete(ctx context.Context, id, actor primitive.ObjectID) (bool, error) {
	return s.Store.SoftDeleteGarage(ctx, id, actor)
}

func validateCreate(in GarageInput) error {
	if in.Code == nil {
		return fmt.Errorf("%w: code is required", domain.ErrValidation)
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if in.Location == nil {
		return fmt.Errorf("%w: location is required", domain.ErrValidation)
	}
	if in.Location.GoogleID == "" {
		return fmt.Errorf("%w: location.google_id is required", domain.ErrValidation)
	}
	return nil
}

func updatePatch(in GarageInput) (bson.M, error) {
	patch := bson.M{}
	if in.Code != nil {
		patch["code"] = *in.Code
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", domain.ErrValidation)
		}
		patch["name"] = name
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.Address != nil {
		patch["address"] = *in.Address
	}
	if in.Location != nil {
		if in.Location.GoogleID == "" {
			return nil, fmt.Errorf("%w: location.google_id is required", domain.ErrValidation)
		}
		patch["location"] = *in.Location
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: empty update", domain.ErrValidation)
	}
	return patch, nil
}
