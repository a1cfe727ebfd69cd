package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paperscan/internal/service"
)

// AssessmentHandler handles assessment management endpoints.
type AssessmentHandler struct {
	assessmentService service.AssessmentService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessmentService service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

type createAssessmentRequest struct {
	Name          string        `json:"name" binding:"required"`
	NumPapers     int           `json:"num_papers"`
	PagesPerPaper int           `json:"pages_per_paper" binding:"required"`
	NumVersions   int           `json:"num_versions" binding:"required"`
	QuestionPages map[int][]int `json:"question_pages"`
}

// Create handles POST /api/v1/assessments
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req createAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	assessment, err := h.assessmentService.Create(c.Request.Context(), &service.CreateAssessmentInput{
		Name:          req.Name,
		NumPapers:     req.NumPapers,
		PagesPerPaper: req.PagesPerPaper,
		NumVersions:   req.NumVersions,
		QuestionPages: req.QuestionPages,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, assessment)
}

// GetByID handles GET /api/v1/assessments/:id
func (h *AssessmentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid assessment id")
		return
	}
	assessment, err := h.assessmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, assessment)
}

// List handles GET /api/v1/assessments
func (h *AssessmentHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	assessments, total, err := h.assessmentService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, assessments, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// PaperPages handles GET /api/v1/assessments/:id/papers/:paper
func (h *AssessmentHandler) PaperPages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid assessment id")
		return
	}
	paper, err := strconv.Atoi(c.Param("paper"))
	if err != nil || paper < 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_PAPER", "invalid paper number")
		return
	}
	pages, err := h.assessmentService.PaperPages(c.Request.Context(), id, paper)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, pages)
}

// SlotOccupant handles GET /api/v1/assessments/:id/papers/:paper/pages/:page
func (h *AssessmentHandler) SlotOccupant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid assessment id")
		return
	}
	paper, err := strconv.Atoi(c.Param("paper"))
	if err != nil || paper < 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_PAPER", "invalid paper number")
		return
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		RespondError(c, http.StatusBadRequest, "INVALID_PAGE", "invalid page number")
		return
	}
	occupant, err := h.assessmentService.SlotOccupant(c.Request.Context(), id, paper, page)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, occupant)
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
