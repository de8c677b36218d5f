package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/imagerate-backend/internal/http/handlers"
	httpMW "github.com/yungbote/imagerate-backend/internal/http/middleware"
	"github.com/yungbote/imagerate-backend/internal/observability"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	HealthHandler     *httpH.HealthHandler
	AssetHandler      *httpH.AssetHandler
	EvaluationHandler *httpH.EvaluationHandler
	SyncHandler       *httpH.SyncHandler
	BackfillHandler   *httpH.BackfillHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "imagerate"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Assets (read side)
		if cfg.AssetHandler != nil {
			api.GET("/assets", cfg.AssetHandler.ListAssets)
			api.GET("/assets/:id", cfg.AssetHandler.GetAsset)
			api.GET("/facets", cfg.AssetHandler.Facets)
			api.GET("/progress", cfg.AssetHandler.Progress)
		}

		// Evaluations
		if cfg.EvaluationHandler != nil {
			api.PUT("/assets/:id/evaluations/:evaluator_id", cfg.EvaluationHandler.PutEvaluation)
			api.GET("/assets/:id/evaluations/:evaluator_id", cfg.EvaluationHandler.GetEvaluation)
			api.GET("/evaluations/export", cfg.EvaluationHandler.Export)
		}

		// Reconciliation
		if cfg.SyncHandler != nil {
			api.POST("/sync", cfg.SyncHandler.Sync)
			api.GET("/sync/status", cfg.SyncHandler.Status)
		}

		// Backfill
		if cfg.BackfillHandler != nil {
			api.POST("/backfill", cfg.BackfillHandler.Backfill)
		}
	}

	return r
}
