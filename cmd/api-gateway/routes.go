package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sports-academy-api/internal/handler"
	"github.com/noah-isme/sports-academy-api/internal/middleware"
	"github.com/noah-isme/sports-academy-api/internal/models"
	"github.com/noah-isme/sports-academy-api/internal/service"
	"github.com/noah-isme/sports-academy-api/pkg/config"
	"github.com/noah-isme/sports-academy-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sports-academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sports-academy-api/pkg/middleware/requestid"
)

type routes struct {
	auth         *handler.AuthHandler
	pricing      *handler.PricingHandler
	sports       *handler.SportHandler
	checkouts    *handler.CheckoutHandler
	registration *handler.RegistrationHandler
	metrics      *handler.MetricsHandler
	metricsSvc   *service.MetricsService
	tokens       middleware.TokenValidator
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(h.metricsSvc, "/metrics", "/health", "/ready"))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/" + strings.Trim(cfg.APIPrefix, "/"))
	api.POST("/auth/login", h.auth.Login)
	api.GET("/pricing", h.pricing.Calculate)
	api.GET("/pricing/countries", h.pricing.Countries)
	api.GET("/payments/bank-details", h.pricing.BankDetails)
	api.GET("/sports/:id/options", h.sports.Options)
	api.GET("/delegate/verify", h.checkouts.VerifyDelegateLink)

	secured := api.Group("")
	secured.Use(middleware.JWT(h.tokens))
	secured.GET("/auth/me", h.auth.Me)
	secured.GET("/sports/:id/students", h.sports.Students)
	secured.POST("/selections/select", h.sports.Select)
	secured.POST("/selections/substitute", h.sports.Substitute)

	audit := logr.Named("http")
	checkouts := secured.Group("/checkouts")
	checkouts.POST("", middleware.Audit(audit, "checkout.start"), h.checkouts.Start)
	checkouts.GET("/:id", h.checkouts.Get)
	checkouts.PUT("/:id", middleware.Audit(audit, "checkout.update"), h.checkouts.Update)
	checkouts.DELETE("/:id", middleware.Audit(audit, "checkout.cancel"), h.checkouts.Cancel)
	checkouts.POST("/:id/method", middleware.Audit(audit, "checkout.method"), h.checkouts.ChooseMethod)
	checkouts.POST("/:id/confirm", middleware.Audit(audit, "checkout.confirm_card"), h.checkouts.Confirm)
	checkouts.POST("/:id/bank-transfer", middleware.Audit(audit, "checkout.bank_transfer"), h.checkouts.BankTransfer)
	checkouts.POST("/:id/free", middleware.Audit(audit, "checkout.free"), h.checkouts.Free)
	checkouts.POST("/:id/delegate", middleware.RequireRoles(models.RoleSchool, models.RoleAcademy, models.RoleAdmin), middleware.Audit(audit, "checkout.delegate"), h.checkouts.Delegate)
	checkouts.GET("/:id/receipt", h.checkouts.Receipt)

	admin := secured.Group("/registrations")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/bulk", middleware.Audit(audit, "registration.bulk_import"), h.registration.Bulk)

	return r
}
