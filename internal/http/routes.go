package http

import (
	"net"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(h *Handler, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/api/auth/login/social", h.LoginSocial)

	api := r.Group("/api/garages", AuthSession(jwtSecret))
	{
		api.POST("/query", h.ListGarages)
		api.POST("", h.CreateGarage)
		api.PUT("/:garageId", h.UpdateGarage)
		api.PATCH("/:garageId/services", h.AddServices)
		api.DELETE("/:garageId/services", h.RemoveServices)
		api.DELETE("/:garageId", h.DeleteGarage)
	}
	return r
}

// ClientIP strips the port so the rate limiter keys on the host only.
func ClientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}
	return ip
}
