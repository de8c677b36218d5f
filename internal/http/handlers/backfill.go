package handlers

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/http/response"
	"github.com/yungbote/imagerate-backend/internal/services"
)

type BackfillHandler struct {
	backfill   services.BackfillService
	mappingDir string
}

// NewBackfillHandler serves mapping files only from mappingDir. An empty
// mappingDir disables the mapping source over HTTP.
func NewBackfillHandler(backfill services.BackfillService, mappingDir string) *BackfillHandler {
	return &BackfillHandler{backfill: backfill, mappingDir: strings.TrimSpace(mappingDir)}
}

type backfillRequest struct {
	Source string `json:"source"`
	Path   string `json:"path"`
}

// POST /api/backfill
func (h *BackfillHandler) Backfill(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, domainagg.Validation("http.backfill", err.Error()))
		return
	}
	src, err := services.ParseBackfillSource(req.Source, req.Path)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if m, ok := src.(services.MappingFileSource); ok {
		resolved, err := h.resolveMapping(m.Path)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		src = services.MappingFileSource{Path: resolved}
	}
	report, err := h.backfill.Backfill(c.Request.Context(), src)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// resolveMapping accepts only a relative name inside the mapping directory.
func (h *BackfillHandler) resolveMapping(name string) (string, error) {
	const op = "http.backfill"
	if h.mappingDir == "" {
		return "", domainagg.Validation(op, "mapping files are not accepted over HTTP")
	}
	name = filepath.FromSlash(strings.TrimSpace(name))
	if !filepath.IsLocal(name) {
		return "", domainagg.Validation(op, "mapping path must be a file name inside the mapping directory")
	}
	return filepath.Join(h.mappingDir, name), nil
}
