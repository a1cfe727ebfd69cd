package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"paperscan/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response. Details carries structured
// payloads for collision and readiness errors so clients can render them.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

func respondErrorDetails(c *gin.Context, status int, code, msg string, details interface{}) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg, Details: details},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrAssessmentNotFound):
		return http.StatusNotFound, "ASSESSMENT_NOT_FOUND", "assessment not found"
	case errors.Is(err, domain.ErrBundleNotFound):
		return http.StatusNotFound, "BUNDLE_NOT_FOUND", "bundle not found"
	case errors.Is(err, domain.ErrPageNotFound):
		return http.StatusNotFound, "PAGE_NOT_FOUND", "page image not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrDuplicateAssessment):
		return http.StatusConflict, "DUPLICATE_ASSESSMENT", "assessment name already exists"
	case errors.Is(err, domain.ErrBundleNameTaken):
		return http.StatusConflict, "BUNDLE_NAME_TAKEN", "bundle name already exists with different content"
	case errors.Is(err, domain.ErrBundleHashExists):
		return http.StatusConflict, "BUNDLE_HASH_EXISTS", "identical PDF already uploaded under a different name"
	case errors.Is(err, domain.ErrBundleAlreadyCommitted):
		return http.StatusConflict, "BUNDLE_COMMITTED", "bundle is already committed and immutable"
	case errors.Is(err, domain.ErrStaleState):
		return http.StatusConflict, "STALE_STATE", "page state changed since it was read; refresh and retry"
	case errors.Is(err, domain.ErrSlotOccupied):
		return http.StatusConflict, "SLOT_OCCUPIED", "target slot already occupied in permanent storage"
	case errors.Is(err, domain.ErrDuplicateImage):
		return http.StatusConflict, "DUPLICATE_IMAGE", "identical page image already committed"
	case errors.Is(err, domain.ErrExtraNotAssignable):
		return http.StatusConflict, "EXTRA_NOT_ASSIGNABLE", "extra page assignment requires an uncommitted page"
	case errors.Is(err, domain.ErrMagicMismatch):
		return http.StatusBadRequest, "MAGIC_MISMATCH", "magic code does not match assessment"
	case errors.Is(err, domain.ErrEmptyBundle):
		return http.StatusBadRequest, "EMPTY_BUNDLE", "uploaded PDF contains no pages"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	var rangeErr *domain.RangeError
	if errors.As(err, &rangeErr) {
		RespondError(c, http.StatusBadRequest, "OUT_OF_RANGE", rangeErr.Error())
		return
	}
	var formatErr *domain.FormatError
	if errors.As(err, &formatErr) {
		RespondError(c, http.StatusBadRequest, "MALFORMED_CODE", formatErr.Error())
		return
	}
	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		RespondError(c, http.StatusConflict, "INVALID_TRANSITION", transitionErr.Error())
		return
	}
	var notReady *domain.BundleNotReadyError
	if errors.As(err, &notReady) {
		respondErrorDetails(c, http.StatusConflict, "BUNDLE_NOT_READY", notReady.Error(), gin.H{"unresolved": notReady.Unresolved})
		return
	}
	var internal *domain.InternalCollisionError
	if errors.As(err, &internal) {
		respondErrorDetails(c, http.StatusConflict, "INTERNAL_COLLISIONS", internal.Error(), gin.H{"groups": internal.Groups})
		return
	}
	var external *domain.ExternalCollisionError
	if errors.As(err, &external) {
		respondErrorDetails(c, http.StatusConflict, "EXTERNAL_COLLISIONS", external.Error(), gin.H{"conflicts": external.Conflicts})
		return
	}

	status, code, msg := MapDomainError(err)
	if status == http.StatusInternalServerError {
		log.Printf("handler: internal error: %v", err)
	}
	RespondError(c, status, code, msg)
}
