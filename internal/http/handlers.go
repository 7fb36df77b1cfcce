package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/garage-service/internal/domain"
	"github.com/tazhibayda/garage-service/internal/log"
	"github.com/tazhibayda/garage-service/internal/metrics"
	"github.com/tazhibayda/garage-service/internal/query"
	"github.com/tazhibayda/garage-service/internal/queue"
	"github.com/tazhibayda/garage-service/internal/repo"
	"github.com/tazhibayda/garage-service/internal/service"
)

type Handler struct {
	Auth            *service.Auth
	Garages         *service.Garages
	Store           *repo.Store
	Redis           *repo.Redis
	RateLimitPerMin int
	Events          queue.Publisher
}

func NewHandler(auth *service.Auth, garages *service.Garages, store *repo.Store, rds *repo.Redis, rlPerMin int, pub queue.Publisher) *Handler {
	return &Handler{
		Auth:            auth,
		Garages:         garages,
		Store:           store,
		Redis:           rds,
		RateLimitPerMin: rlPerMin,
		Events:          pub,
	}
}

type loginSocialReq struct {
	IDToken string `json:"idToken"`
}

// LoginSocial godoc
// @Summary Social login with a Google ID token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginSocialReq true "idToken"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/auth/login/social [post]
func (h *Handler) LoginSocial(c *gin.Context) {
	if h.Redis != nil && !h.Redis.AllowLogin(c.Request.Context(), ClientIP(c), h.RateLimitPerMin) {
		metrics.LoginsTotal.WithLabelValues("limited").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "too many requests"})
		return
	}

	var in loginSocialReq
	if err := c.ShouldBindJSON(&in); err != nil || in.IDToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "idToken must be a string"})
		return
	}

	token, u, err := h.Auth.LoginSocial(c.Request.Context(), in.IDToken)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		writeErr(c, err)
		return
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	// the request context dies with the response; the publish must not
	go h.Events.Publish(context.WithoutCancel(c.Request.Context()), "garage.events", "user.loggedin",
		queue.UserLoggedIn{UserID: u.ID, Email: u.Email},
		c.GetString("X-Request-ID"))

	c.JSON(http.StatusOK, gin.H{
		"data":    gin.H{"token": token, "user": u},
		"message": "Social login",
	})
}

type listReq struct {
	Filters   map[string]any `json:"filters"`
	Limit     int            `json:"limit"`
	LastID    string         `json:"lastId"`
	SortField string         `json:"sortField"`
	SortOrder string         `json:"sortOrder"`
	Fields    []string       `json:"fields"`
	Populate  []string       `json:"populate"`
}

// ListGarages godoc
// @Summary Query garages with filters, cursor and sorting
// @Tags garages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body listReq true "query"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/garages/query [post]
func (h *Handler) ListGarages(c *gin.Context) {
	var in listReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad payload"})
		return
	}

	q := query.ListQuery{
		Filters:  in.Filters,
		Limit:    in.Limit,
		Fields:   in.Fields,
		Populate: in.Populate,
	}
	if in.SortField == "" {
		q.SortBy = []query.SortKey{{Field: "createdDate", Order: query.OrderDesc}}
	} else {
		q.SortBy = []query.SortKey{{Field: in.SortField, Order: in.SortOrder}}
	}
	if in.LastID != "" {
		oid, err := primitive.ObjectIDFromHex(in.LastID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "lastId must be a valid id"})
			return
		}
		q.LastID = &oid
	}

	garages, err := h.Garages.List(c.Request.Context(), q)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": garages, "message": "Garages response"})
}

// CreateGarage godoc
// @Summary Create garage
// @Tags garages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body service.GarageInput true "garage"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/garages [post]
func (h *Handler) CreateGarage(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	var in service.GarageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad payload"})
		return
	}

	g, err := h.Garages.Create(c.Request.Context(), in, actor)
	if err != nil {
		writeErr(c, err)
		return
	}

	go h.Events.Publish(context.WithoutCancel(c.Request.Context()), "garage.events", "garage.created",
		queue.GarageCreated{GarageID: g.ID, Code: g.Code, Name: g.Name, CreatedBy: g.CreatedBy},
		c.GetString("X-Request-ID"))

	c.JSON(http.StatusOK, gin.H{"data": g, "message": "Create new garage"})
}

// UpdateGarage godoc
// @Summary Update garage by id
// @Tags garages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param garageId path string true "garage id"
// @Param payload body service.GarageInput true "patch"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/garages/{garageId} [put]
func (h *Handler) UpdateGarage(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	id, ok := garageID(c)
	if !ok {
		return
	}
	var in service.GarageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad payload"})
		return
	}

	g, err := h.Garages.Update(c.Request.Context(), id, in, actor)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": g, "message": "Garage is updated"})
}

type updateServicesReq struct {
	Services []service.ServiceInput `json:"services"`
}

// AddServices godoc
// @Summary Add services to a garage
// @Tags garages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param garageId path string true "garage id"
// @Param payload body updateServicesReq true "services"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/garages/{garageId}/services [patch]
func (h *Handler) AddServices(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	id, ok := garageID(c)
	if !ok {
		return
	}
	var in updateServicesReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad payload"})
		return
	}

	svcs, err := h.Garages.AddServices(c.Request.Context(), id, in.Services, actor)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": svcs, "message": "Services are added"})
}

type removeServicesReq struct {
	ServiceIDs []string `json:"serviceIds"`
}

// RemoveServices godoc
// @Summary Remove services from a garage by id
// @Tags garages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param garageId path string true "garage id"
// @Param payload body removeServicesReq true "service ids"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/garages/{garageId}/services [delete]
func (h *Handler) RemoveServices(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	id, ok := garageID(c)
	if !ok {
		return
	}
	var in removeServicesReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad payload"})
		return
	}
	ids := make([]primitive.ObjectID, 0, len(in.ServiceIDs))
	for _, s := range in.ServiceIDs {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "serviceIds must be valid ids"})
			return
		}
		ids = append(ids, oid)
	}

	svcs, removed, err := h.Garages.RemoveServices(c.Request.Context(), id, ids, actor)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": svcs, "removed": removed, "message": "Services are deleted"})
}

// DeleteGarage godoc
// @Summary Soft-delete garage by id
// @Tags garages
// @Security BearerAuth
// @Produce json
// @Param garageId path string true "garage id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/garages/{garageId} [delete]
func (h *Handler) DeleteGarage(c *gin.Context) {
	actor, ok := actingUser(c)
	if !ok {
		return
	}
	id, ok := garageID(c)
	if !ok {
		return
	}

	okDel, err := h.Garages.Delete(c.Request.Context(), id, actor)
	if err != nil {
		writeErr(c, err)
		return
	}
	if !okDel {
		writeErr(c, domain.ErrNotFound)
		return
	}

	go h.Events.Publish(context.WithoutCancel(c.Request.Context()), "garage.events", "garage.deleted",
		queue.GarageDeleted{GarageID: id, DeletedBy: actor},
		c.GetString("X-Request-ID"))

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Garage is deleted"})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func actingUser(c *gin.Context) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(c.GetString("uid"))
	if err != nil {
		log.L.Warn("session carries bad uid", zap.String("uid", c.GetString("uid")))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return primitive.NilObjectID, false
	}
	return oid, true
}

func garageID(c *gin.Context) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(c.Param("garageId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "garageId must be a valid id"})
		return primitive.NilObjectID, false
	}
	return oid, true
}
