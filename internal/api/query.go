package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "agriserve-query/internal/common/errors"
	"agriserve-query/internal/common/validation"
	"agriserve-query/internal/models"
)

type queryRequest struct {
	Message string                `json:"message"`
	Caller  *models.CallerContext `json:"caller,omitempty"`
}

type validationResponse struct {
	Error   string                       `json:"error"`
	Code    string                       `json:"code"`
	Details []validation.ValidationError `json:"details,omitempty"`
}

// Query answers POST /api/v1/query. The body is {message, caller}; the
// response is always a QueryResult unless the body violates the schema.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if res := validation.SmartQueryInput.Validate(body); !res.Valid {
		stdErr := apperrors.NewInputValidationFailedError(res.Summary())
		h.log.Info("query rejected", map[string]interface{}{
			"error_code": string(stdErr.Code),
			"details":    stdErr.Details,
		})
		JSON(w, http.StatusBadRequest, validationResponse{
			Error:   stdErr.Message,
			Code:    string(stdErr.Code),
			Details: res.Errors,
		})
		return
	}

	var req queryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller := models.AnonymousCaller()
	if req.Caller != nil {
		caller = *req.Caller
	}
	JSON(w, http.StatusOK, h.engine.SmartQuery(r.Context(), req.Message, caller))
}
