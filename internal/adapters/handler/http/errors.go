package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/platform/apperr"
)

const maxBodyBytes = 64 << 10

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

// mapError turns domain sentinels into API errors. Anything else, including
// an *apperr.AppError built by a handler, goes through apperr.FromError.
func mapError(err error) *apperr.AppError {
	switch {
	case err == nil:
		return apperr.Internal("internal_error", "internal server error", nil)
	case errors.Is(err, domain.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, domain.ErrDuplicateVote):
		return apperr.Conflict("duplicate_vote", "voter has already voted on this poll", err)
	case errors.Is(err, domain.ErrInvalidOption):
		return apperr.BadRequest("invalid_option", "option does not belong to this poll", err)
	case errors.Is(err, domain.ErrValidation):
		return apperr.BadRequest("validation_failed", err.Error(), err)
	case errors.Is(err, domain.ErrInvalidVoterToken):
		return apperr.Unauthorized("invalid_voter_token", "invalid voter token", err)
	case errors.Is(err, domain.ErrStorage):
		return apperr.Unavailable("storage_unavailable", "storage is temporarily unavailable", err)
	default:
		return apperr.FromError(err)
	}
}

// decodeJSON reads at most maxBodyBytes of JSON from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.PayloadTooLarge("body_too_large", "request body is too large", err)
		}
		return apperr.BadRequest("invalid_body", "invalid request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
