package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/imagerate-backend/internal/domain"
	"github.com/yungbote/imagerate-backend/internal/http/response"
	"github.com/yungbote/imagerate-backend/internal/services"
)

type AssetHandler struct {
	catalog services.CatalogService
}

func NewAssetHandler(catalog services.CatalogService) *AssetHandler {
	return &AssetHandler{catalog: catalog}
}

type assetView struct {
	*types.Asset
	URL string `json:"url,omitempty"`
}

func (h *AssetHandler) view(a *types.Asset) assetView {
	return assetView{Asset: a, URL: h.catalog.AssetURL(a.RemoteID)}
}

// GET /api/assets
func (h *AssetHandler) ListAssets(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	filter := types.AssetFilter{
		Group:       strings.TrimSpace(c.Query("group")),
		SourceTag:   strings.TrimSpace(c.Query("source_tag")),
		Category:    strings.TrimSpace(c.Query("category")),
		Variant:     strings.TrimSpace(c.Query("variant")),
		EvaluatorID: strings.TrimSpace(c.Query("evaluator_id")),
		Status:      types.EvaluationStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Limit:       limit,
		Offset:      offset,
	}
	rows, total, err := h.catalog.ListAssets(c.Request.Context(), filter)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out := make([]assetView, 0, len(rows))
	for _, a := range rows {
		out = append(out, h.view(a))
	}
	response.RespondOK(c, gin.H{"assets": out, "total": total})
}

// GET /api/assets/:id
func (h *AssetHandler) GetAsset(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	a, err := h.catalog.GetAsset(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"asset": h.view(a)})
}

// GET /api/facets
func (h *AssetHandler) Facets(c *gin.Context) {
	f, err := h.catalog.Facets(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"facets": f})
}

// GET /api/progress?evaluator_id=
func (h *AssetHandler) Progress(c *gin.Context) {
	p, err := h.catalog.GetProgress(c.Request.Context(), c.Query("evaluator_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}
