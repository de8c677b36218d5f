package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/imagerate-backend/internal/domain/aggregates"
	"github.com/yungbote/imagerate-backend/internal/http/response"
	"github.com/yungbote/imagerate-backend/internal/services"
)

type SyncHandler struct {
	sync services.SyncService
}

func NewSyncHandler(sync services.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

type syncRequest struct {
	Force   bool     `json:"force"`
	Folders []string `json:"folders"`
}

// POST /api/sync
//
// A partial run (rate limited, cancelled, failed folders) is still a 200;
// more_remaining in the report tells the caller to come back.
func (h *SyncHandler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondErr(c, domainagg.Validation("http.sync", err.Error()))
		return
	}
	report, err := h.sync.Run(c.Request.Context(), services.SyncOptions{
		Folders: req.Folders,
		Resume:  !req.Force,
		Force:   req.Force,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// GET /api/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	cursors, runs, err := h.sync.Status(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cursors": cursors, "runs": runs})
}
