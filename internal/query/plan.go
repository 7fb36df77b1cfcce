// Package query turns declarative list requests into executable Mongo
// plans: conjunctive filters, multi-key sort, cursor boundary, field
// projection and reference population. Field names coming from clients
// are validated against closed sets here, never passed through raw.
package query

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/garage-service/internal/domain"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"

	DefaultLimit = 50
	MaxLimit     = 200
)

type SortKey struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// ListQuery is the declarative request shape. LastID is the id of the
// last document of the previous page; the next page starts strictly
// after it in the composite sort order.
type ListQuery struct {
	Filters  map[string]any      `json:"filters"`
	Limit    int                 `json:"limit"`
	LastID   *primitive.ObjectID `json:"last_id"`
	SortBy   []SortKey           `json:"sort_by"`
	Fields   []string            `json:"fields"`
	Populate []string            `json:"populate"`
}

// Plan is what the store executes. Everything in it is already
// validated and uses bson keys, not API field names.
type Plan struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Limit      int64
	Populate   []string // API names: createdBy, updatedBy
}

// AnchorLookup resolves a cursor id through the standard read path, so
// a soft-deleted anchor comes back as domain.ErrNotFound.
type AnchorLookup func(ctx context.Context, id primitive.ObjectID) (*domain.Garage, error)

// Closed field sets. Keys are the API names from the request, values
// are the stored bson keys. is_deleted is deliberately absent from all
// of them: it can never be filtered, sorted, projected or returned.
var sortableFields = map[string]string{
	"code":        "code",
	"name":        "name",
	"createdDate": "created_date",
	"updatedDate": "updated_date",
}

var visibleFields = map[string]string{
	"code":        "code",
	"name":        "name",
	"description": "description",
	"address":     "address",
	"location":    "location",
	"services":    "services",
	"createdBy":   "created_by",
	"createdDate": "created_date",
	"updatedBy":   "updated_by",
	"updatedDate": "updated_date",
}

var filterableFields = map[string]string{
	"code":        "code",
	"name":        "name",
	"address":     "address",
	"description": "description",
	"createdBy":   "created_by",
}

var populatableFields = map[string]bool{
	"createdBy": true,
	"updatedBy": true,
}

// updated_date is the one sortable field a document may not carry at
// all; the cursor boundary has to account for the missing-value block.
var nullableSortFields = map[string]bool{
	"updatedDate": true,
}

// Build validates q and produces the executable plan. When a cursor is
// present the anchor document is resolved via lookup; a missing or
// soft-deleted anchor is a validation failure and the caller must
// restart pagination from the beginning.
func Build(ctx context.Context, q ListQuery, lookup AnchorLookup) (*Plan, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if len(q.SortBy) == 0 {
		return nil, fmt.Errorf("%w: sort_by must have at least one key", domain.ErrValidation)
	}
	// the boundary anchors on (primary, _id) only; secondary sort keys
	// would leave it incomplete and skip or repeat documents
	if q.LastID != nil && len(q.SortBy) > 1 {
		return nil, fmt.Errorf("%w: cursor pagination supports a single sort key", domain.ErrValidation)
	}
	sort := bson.D{}
	for _, sk := range q.SortBy {
		key, ok := sortableFields[sk.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown sort field %q", domain.ErrValidation, sk.Field)
		}
		dir, err := direction(sk.Order)
		if err != nil {
			return nil, err
		}
		sort = append(sort, bson.E{Key: key, Value: dir})
	}
	// _id as the final tie-break makes the order total, which is what
	// guarantees cursor pagination terminates without duplicates.
	primaryDir := sort[0].Value.(int)
	sort = append(sort, bson.E{Key: "_id", Value: primaryDir})

	filter := bson.M{}
	for name, val := range q.Filters {
		key, ok := filterableFields[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter field %q", domain.ErrValidation, name)
		}
		filter[key] = filterValue(name, val)
	}
	// the read path never sees soft-deleted documents
	filter["is_deleted"] = false

	if q.LastID != nil {
		boundary, err := cursorBoundary(ctx, q, primaryDir, lookup)
		if err != nil {
			return nil, err
		}
		filter["$or"] = boundary
	}

	projection, err := buildProjection(q.Fields)
	if err != nil {
		return nil, err
	}

	populate := make([]string, 0, len(q.Populate))
	for _, name := range q.Populate {
		if !populatableFields[name] {
			return nil, fmt.Errorf("%w: field %q cannot be populated", domain.ErrValidation, name)
		}
		populate = append(populate, name)
	}

	return &Plan{
		Filter:     filter,
		Sort:       sort,
		Projection: projection,
		Limit:      int64(limit),
		Populate:   populate,
	}, nil
}

// cursorBoundary builds the page-boundary disjunction: documents
// strictly after the anchor on the primary sort key, or equal on the
// primary key and strictly after by _id. Mongo sorts documents missing
// the key before every present value ascending and after them
// descending, and neither range nor equality filters on a number match
// a missing field, so the missing-value block needs its own disjuncts.
func cursorBoundary(ctx context.Context, q ListQuery, primaryDir int, lookup AnchorLookup) (bson.A, error) {
	if lookup == nil {
		return nil, fmt.Errorf("%w: cursor not supported without anchor lookup", domain.ErrValidation)
	}
	anchor, err := lookup(ctx, *q.LastID)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		return nil, fmt.Errorf("%w: cursor %s does not resolve, restart pagination", domain.ErrValidation, q.LastID.Hex())
	}

	primary := q.SortBy[0].Field
	key := sortableFields[primary]
	op := "$gt"
	if primaryDir < 0 {
		op = "$lt"
	}

	val, present := anchorValue(anchor, primary)
	if !present {
		// anchor sits inside the missing-value block: the rest of that
		// block comes first, then (ascending only) every present value
		rest := bson.M{key: nil, "_id": bson.M{op: *q.LastID}}
		if primaryDir > 0 {
			return bson.A{rest, bson.M{key: bson.M{"$ne": nil}}}, nil
		}
		return bson.A{rest}, nil
	}

	boundary := bson.A{
		bson.M{key: bson.M{op: val}},
		bson.M{key: val, "_id": bson.M{op: *q.LastID}},
	}
	// descending, the missing-value block is still ahead of the cursor
	if primaryDir < 0 && nullableSortFields[primary] {
		boundary = append(boundary, bson.M{key: nil})
	}
	return boundary, nil
}

func anchorValue(g *domain.Garage, field string) (any, bool) {
	switch field {
	case "code":
		return g.Code, true
	case "name":
		return g.Name, true
	case "createdDate":
		return g.CreatedDate, true
	case "updatedDate":
		if g.UpdatedDate == nil {
			return nil, false
		}
		return *g.UpdatedDate, true
	}
	return nil, false
}

func buildProjection(fields []string) (bson.M, error) {
	proj := bson.M{}
	if len(fields) == 0 {
		for _, key := range visibleFields {
			proj[key] = 1
		}
		return proj, nil
	}
	for _, name := range fields {
		key, ok := visibleFields[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", domain.ErrValidation, name)
		}
		proj[key] = 1
	}
	return proj, nil
}

func direction(order string) (int, error) {
	switch order {
	case OrderAsc, "":
		return 1, nil
	case OrderDesc:
		return -1, nil
	}
	return 0, fmt.Errorf("%w: sort order must be asc or desc", domain.ErrValidation)
}

// createdBy filters arrive as hex strings from clients; convert so the
// stored ObjectID matches.
func filterValue(name string, val any) any {
	if name != "createdBy" {
		return val
	}
	if s, ok := val.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return val
}
