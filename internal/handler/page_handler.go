package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paperscan/internal/domain"
	"paperscan/internal/service"
)

// PageHandler handles per-page classification endpoints.
type PageHandler struct {
	bundleService   service.BundleService
	classifyService service.ClassifyService
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(bundleService service.BundleService, classifyService service.ClassifyService) *PageHandler {
	return &PageHandler{bundleService: bundleService, classifyService: classifyService}
}

type castRequest struct {
	Expected string `json:"expected" binding:"required"`
	Target   string `json:"target" binding:"required"`
	Paper    int    `json:"paper"`
	Page     int    `json:"page"`
	Version  int    `json:"version"`
	Reason   string `json:"reason"`
}

// Cast handles POST /api/v1/pages/:id/cast
// The expected field carries the state the client last saw; a concurrent
// change yields 409 STALE_STATE rather than a silent overwrite.
func (h *PageHandler) Cast(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}
	var req castRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	expected := domain.Classification(req.Expected)
	target := domain.Classification(req.Target)
	if !expected.Valid() || !target.Valid() {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "unknown classification state")
		return
	}

	page, err := h.classifyService.Cast(c.Request.Context(), &service.CastInput{
		PageID:   id,
		Expected: expected,
		Target:   target,
		Paper:    req.Paper,
		Page:     req.Page,
		Version:  req.Version,
		Reason:   req.Reason,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, page)
}

type assignExtraRequest struct {
	Paper     int   `json:"paper"`
	Questions []int `json:"questions" binding:"required"`
}

// AssignExtra handles POST /api/v1/pages/:id/extra
func (h *PageHandler) AssignExtra(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}
	var req assignExtraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	page, err := h.classifyService.AssignExtra(c.Request.Context(), id, req.Paper, req.Questions)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, page)
}

// ImageURL handles GET /api/v1/pages/:id/image
// Returns a presigned URL instead of proxying the image bytes.
func (h *PageHandler) ImageURL(c *gin.Context) {
	id, ok := pageID(c)
	if !ok {
		return
	}
	url, err := h.bundleService.PageURL(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"url": url})
}

func pageID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid page id")
		return uuid.Nil, false
	}
	return id, true
}
