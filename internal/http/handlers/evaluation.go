package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/imagerate-backend/internal/domain"
	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/http/response"
	"github.com/yungbote/imagerate-backend/internal/platform/logger"
	"github.com/yungbote/imagerate-backend/internal/services"
)

type EvaluationHandler struct {
	log     *logger.Logger
	ledger  services.LedgerService
	catalog services.CatalogService
}

func NewEvaluationHandler(log *logger.Logger, ledger services.LedgerService, catalog services.CatalogService) *EvaluationHandler {
	return &EvaluationHandler{
		log:     log.With("handler", "EvaluationHandler"),
		ledger:  ledger,
		catalog: catalog,
	}
}

// PUT /api/assets/:id/evaluations/:evaluator_id
func (h *EvaluationHandler) PutEvaluation(c *gin.Context) {
	assetID, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var fields types.EvaluationFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	ev, err := h.ledger.Upsert(c.Request.Context(), assetID, c.Param("evaluator_id"), fields)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"evaluation": ev})
}

// GET /api/assets/:id/evaluations/:evaluator_id
func (h *EvaluationHandler) GetEvaluation(c *gin.Context) {
	assetID, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	ev, err := h.ledger.Get(c.Request.Context(), assetID, c.Param("evaluator_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if ev == nil {
		response.RespondErr(c, domainagg.NotFound("ledger.get", "no evaluation for this asset and evaluator"))
		return
	}
	response.RespondOK(c, gin.H{"evaluation": ev})
}

// GET /api/evaluations/export?format=csv|json
func (h *EvaluationHandler) Export(c *gin.Context) {
	switch strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv"))) {
	case "json":
		rows, err := h.catalog.ExportEvaluations(c.Request.Context())
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		response.RespondOK(c, gin.H{"evaluations": rows, "count": len(rows)})
	case "csv":
		name := fmt.Sprintf("evaluations_%s.csv", time.Now().UTC().Format("20060102_150405"))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Status(http.StatusOK)
		// Headers are already sent; a failure here can only be logged.
		if err := services.WriteExportCSV(c.Request.Context(), h.catalog, c.Writer); err != nil {
			_ = c.Error(err)
			h.log.Error("CSV export aborted", "error", err)
		}
	default:
		response.RespondErr(c, domainagg.Validation("http.export", "format must be csv or json"))
	}
}
