package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paperscan/internal/report"
	"paperscan/internal/service"
)

// BundleHandler handles bundle upload and pipeline endpoints.
type BundleHandler struct {
	bundleService    service.BundleService
	classifyService  service.ClassifyService
	collisionService service.CollisionService
	pushService      service.PushService
}

// NewBundleHandler creates a new BundleHandler.
func NewBundleHandler(
	bundleService service.BundleService,
	classifyService service.ClassifyService,
	collisionService service.CollisionService,
	pushService service.PushService,
) *BundleHandler {
	return &BundleHandler{
		bundleService:    bundleService,
		classifyService:  classifyService,
		collisionService: collisionService,
		pushService:      pushService,
	}
}

// Upload handles POST /api/v1/bundles
// Multipart form: file (the scan PDF), name, assessment_id.
func (h *BundleHandler) Upload(c *gin.Context) {
	assessmentID, err := uuid.Parse(c.PostForm("assessment_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid assessment id")
		return
	}
	name := c.PostForm("name")
	if name == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "name field is required")
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	pdf, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "could not read uploaded file")
		return
	}

	bundle, err := h.bundleService.Ingest(c.Request.Context(), &service.IngestInput{
		AssessmentID: assessmentID,
		Name:         name,
		PDF:          pdf,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, bundle)
}

// GetByID handles GET /api/v1/bundles/:id
func (h *BundleHandler) GetByID(c *gin.Context) {
	id, ok := bundleID(c)
	if !ok {
		return
	}
	bundle, err := h.bundleService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, bundle)
}

// List handles GET /api/v1/bundles
func (h *BundleHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	bundles, total, err := h.bundleService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, bundles, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Pages handles GET /api/v1/bundles/:id/pages
func (h *BundleHandler) Pages(c *gin.Context) {
	id, ok := bundleID(c)
	if !ok {
		return
	}
	pages, err := h.bundleService.Pages(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pages)
}

// Classify handles POST /api/v1/bundles/:id/classify
// Runs the automatic classifier synchronously. The queue worker does the
// same thing in the background; this endpoint exists for re-runs after the
// decoder was down and for tests.
func (h *BundleHandler) Classify(c *gin.Context) {
	id, ok := bundleID(c)
	if !ok {
		return
	}
	if err := h.classifyService.ClassifyBundle(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	pages, err := h.bundleService.Pages(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pages)
}

// Collisions handles GET /api/v1/bundles/:id/collisions
func (h *BundleHandler) Collisions(c *gin.Context) {
	id, ok := bundleID(c)
	if !ok {
		return
	}
	rep, err := h.collisionService.Detect(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rep)
}

// Push handles POST /api/v1/bundles/:id/push
func (h *BundleHandler) Push(c *gin.Context) {
	id, ok := bundleID(c)
	if !ok {
		return
	}
	rep, err := h.pushService.Push(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rep)
}

// Report handles GET /api/v1/bundles/:id/report
// Streams an xlsx workbook summarizing classification and collisions.
func (h *BundleHandler) Report(c *gin.Context) {
	id, ok := bundleID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	bundle, err := h.bundleService.GetByID(ctx, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	pages, err := h.bundleService.Pages(ctx, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	collisions, err := h.collisionService.Detect(ctx, id)
	if err != nil {
		HandleError(c, err)
		return
	}
	workbook, err := report.BuildBundleWorkbook(bundle, pages, collisions)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bundle-report.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

func bundleID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid bundle id")
		return uuid.Nil, false
	}
	return id, true
}
