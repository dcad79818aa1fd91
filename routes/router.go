package routes

import (
	"time"

	"listings-cms/internal/config"
	"listings-cms/internal/telemetry"
	"listings-cms/middleware"
	"listings-cms/models"
	"listings-cms/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const serviceName = "listings-cms"

// maxFailedLogins is the number of 401s an IP may collect per rate-limit window.
const maxFailedLogins = 10

// Dependencies is everything the HTTP layer needs. Redis and Metrics may be
// nil, which disables rate limiting and request metrics.
type Dependencies struct {
	Config *config.Config

	Profiles       *services.ListingService[models.Profile]
	HighProfiles   *services.ListingService[models.HighProfileCallGirl]
	Services       *services.ListingService[models.Service]
	ExtraServices  *services.ListingService[models.ExtraService]
	FinalCallGirls *services.ListingService[models.FinalCallGirl]

	Video  *services.VideoService
	Admin  *services.AdminService
	Export *services.ExportService
	// Audit is optional; nil disables the audit trail.
	Audit *services.AuditLogger

	Redis   redis.Cmdable
	Metrics *telemetry.Metrics

	MongoPing PingFunc
	Checks    map[string]PingFunc
}

// NewRouter builds the gin engine with the middleware chain and every route.
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger())
	if cfg.OTELEnabled {
		router.Use(middleware.TracingMiddleware(serviceName))
		router.Use(middleware.EnrichTrace())
	}
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.MaxRequestSize, videoPath))

	window := time.Duration(cfg.RateLimitWindow) * time.Second
	var loginLimit gin.HandlerFunc
	if deps.Redis != nil {
		router.Use(middleware.RateLimitMiddleware(deps.Redis, cfg.RateLimitReqs, window))
		loginLimit = middleware.FailedLoginLimit(deps.Redis, maxFailedLogins, window)
	}

	router.Static("/uploads", cfg.UploadsDir)

	authMiddleware := middleware.NewAuthMiddleware(deps.Admin)
	requireAdmin := authMiddleware.RequireAdmin()

	api := router.Group("/api")
	if deps.Audit != nil {
		api.Use(middleware.AuditMiddleware(deps.Audit))
	}

	RegisterListing[models.Profile, models.CreateProfileRequest, models.UpdateProfileRequest](api, ListingRoute[models.Profile]{
		Path:    "/profiles",
		Labels:  Labels{Singular: "profile", Plural: "profiles"},
		Service: deps.Profiles,
	}, requireAdmin)

	RegisterListing[models.HighProfileCallGirl, models.CreateHighProfileRequest, models.UpdateHighProfileRequest](api, ListingRoute[models.HighProfileCallGirl]{
		Path:    "/high-profile-call-girls",
		Labels:  Labels{Singular: "high profile call girl", Plural: "high profile call girls"},
		Service: deps.HighProfiles,
	}, requireAdmin)

	RegisterListing[models.Service, models.CreateServiceRequest, models.UpdateServiceRequest](api, ListingRoute[models.Service]{
		Path:    "/services",
		Labels:  Labels{Singular: "service", Plural: "services"},
		Service: deps.Services,
	}, requireAdmin)

	RegisterListing[models.ExtraService, models.CreateExtraServiceRequest, models.UpdateExtraServiceRequest](api, ListingRoute[models.ExtraService]{
		Path:    "/extra-services",
		Labels:  Labels{Singular: "extra service", Plural: "extra services"},
		Service: deps.ExtraServices,
		Filters: map[string]func(string) bool{"category": models.ValidCategory},
	}, requireAdmin)

	RegisterListing[models.FinalCallGirl, models.CreateFinalCallGirlRequest, models.UpdateFinalCallGirlRequest](api, ListingRoute[models.FinalCallGirl]{
		Path:    "/final-call-girls",
		Labels:  Labels{Singular: "final call girl", Plural: "final call girls"},
		Service: deps.FinalCallGirls,
	}, requireAdmin)

	SetupVideoRoutes(api, deps.Video, cfg.MaxVideoSize, requireAdmin)

	SetupAdminRoutes(api, AdminRoutes{
		Admin:        deps.Admin,
		Export:       deps.Export,
		Audit:        deps.Audit,
		Auth:         authMiddleware,
		LoginLimit:   loginLimit,
		SecureCookie: cfg.GinMode == gin.ReleaseMode,
	})

	SetupSystemRoutes(router, api, deps.MongoPing, deps.Checks)

	return router
}
