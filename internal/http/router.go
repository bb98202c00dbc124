package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/acganger/staffing-backend/internal/config"
	"github.com/acganger/staffing-backend/internal/db"
	"github.com/acganger/staffing-backend/internal/http/handlers"
	"github.com/acganger/staffing-backend/internal/http/middleware"
	"github.com/acganger/staffing-backend/internal/scheduler"
	"github.com/acganger/staffing-backend/internal/service"
	"github.com/acganger/staffing-backend/internal/wfm"

	_ "github.com/acganger/staffing-backend/docs"
)

func Router(cfg config.Config, store *db.Store, sched *scheduler.Scheduler, engine *service.Engine, wfmSync *wfm.Syncer, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Scheduler: sched,
		Engine:    engine,
		WFM:       wfmSync,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/jobs/status", h.JobsStatus)
		api.GET("/jobs/metrics", h.JobsMetrics)
		api.GET("/analytics", h.AnalyticsGet)
		api.GET("/analytics/trend", h.AnalyticsTrend)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/jobs/:name/run", h.RunJob)
		admin.POST("/schedules/push", h.SchedulesPush)
		admin.DELETE("/schedules/roster/:id", h.SchedulesCancel)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
