package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tubedash/internal/middleware"
	"github.com/hitoshi/tubedash/internal/model"
)

// errNoVideos is the JSON error for exports of an empty window.
var errNoVideos = &model.APIError{
	Code:     "NO_VIDEOS",
	Message:  "No videos found in the selected range.",
	Category: "data",
	Action:   "Widen the video range or analyze another channel.",
}

// handleServiceError writes err as a JSON error response.
func handleServiceError(w http.ResponseWriter, err error) {
	apiErr, status := toAPIError(err)
	middleware.WriteErrorResponse(w, status, apiErr)
}

// toAPIError unwraps err into an APIError and its HTTP status.
// Anything that is not an APIError becomes a generic internal error.
func toAPIError(err error) (*model.APIError, int) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr, mapAPIErrorToHTTPStatus(apiErr)
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	return &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}, http.StatusInternalServerError
}

// mapAPIErrorToHTTPStatus maps an APIError code to an HTTP status code.
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeMissingCredential, model.ErrCodeMissingChannelID:
		return http.StatusBadRequest
	case model.ErrCodeChannelNotFound, model.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidDuration, model.ErrCodeInvalidTimestamp, model.ErrCodeInvalidCount:
		return http.StatusUnprocessableEntity
	case model.ErrCodeFetchFailed, model.ErrCodeProtocolError:
		return http.StatusBadGateway
	case model.ErrCodeInvalidWindow:
		return http.StatusBadRequest
	case errNoVideos.Code:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
