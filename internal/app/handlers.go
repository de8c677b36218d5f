package app

import (
	"github.com/gin-gonic/gin"

	httpapi "github.com/yungbote/imagerate-backend/internal/http"
	httpH "github.com/yungbote/imagerate-backend/internal/http/handlers"
	"github.com/yungbote/imagerate-backend/internal/observability"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Asset      *httpH.AssetHandler
	Evaluation *httpH.EvaluationHandler
	Sync       *httpH.SyncHandler
	Backfill   *httpH.BackfillHandler
}

func wireHandlers(log *logger.Logger, cfg Config, db httpH.Pinger, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Asset:      httpH.NewAssetHandler(svc.Catalog),
		Evaluation: httpH.NewEvaluationHandler(log, svc.Ledger, svc.Catalog),
		Sync:       httpH.NewSyncHandler(svc.Sync),
		Backfill:   httpH.NewBackfillHandler(svc.Backfill, cfg.BackfillMappingDir),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers) *gin.Engine {
	log.Info("Wiring router...")
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       cfg.Otel.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		HealthHandler:     h.Health,
		AssetHandler:      h.Asset,
		EvaluationHandler: h.Evaluation,
		SyncHandler:       h.Sync,
		BackfillHandler:   h.Backfill,
	})
}
