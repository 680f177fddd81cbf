package http

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tazhibayda/tours-service/internal/domain"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	users := r.Group("/api/v1/users")
	{
		users.POST("/signup", h.Signup)
		users.POST("/login", h.RateLimit("login"), h.Login)
		users.POST("/forgotPassword", h.RateLimit("forgot"), h.ForgotPassword)
		users.PATCH("/resetPassword/:token", h.ResetPassword)
		users.PATCH("/updateMyPassword", h.Protect(), h.UpdatePassword)
		users.GET("/me", h.Protect(), h.Me)
		users.GET("", h.Protect(), h.RestrictTo(domain.RoleAdmin), h.ListUsers)
	}

	tours := r.Group("/api/v1/tours")
	{
		tours.GET("", h.ListTours)
		tours.GET("/:id", h.GetTour)
		tours.POST("", h.Protect(), h.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide), h.CreateTour)
		tours.PATCH("/:id", h.Protect(), h.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide), h.UpdateTour)
		tours.DELETE("/:id", h.Protect(), h.RestrictTo(domain.RoleAdmin, domain.RoleLeadGuide), h.DeleteTour)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, notFound(fmt.Sprintf("can't find %s on this server", c.Request.URL.Path)))
	})

	return r
}
