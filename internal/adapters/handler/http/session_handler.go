package http

import (
	"net/http"
	"time"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const voterTokenCookie = "voter_token"

type SessionHandler struct {
	voters       ports.VoterTokenService
	ttl          time.Duration
	cookieDomain string
	secure       bool
}

func NewSessionHandler(voters ports.VoterTokenService, ttl time.Duration, cookieDomain string, secure bool) *SessionHandler {
	return &SessionHandler{
		voters:       voters,
		ttl:          ttl,
		cookieDomain: cookieDomain,
		secure:       secure,
	}
}

type sessionResponse struct {
	Token     string    `json:"token"`
	VoterID   string    `json:"voter_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSession godoc
// @Summary      Starts an anonymous voter session
// @Description  Issues a voter token, returned both as the voter_token cookie and in the body for clients that
// @Description  send it in the X-Voter-Token header.
// @Tags         session
// @Produce      json
// @Success      201  {object}  sessionResponse
// @Router       /session [post]
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	token, voterID, err := h.voters.Issue(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.setVoterTokenCookie(w, token)
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:     token,
		VoterID:   voterID,
		ExpiresAt: time.Now().Add(h.ttl).UTC(),
	})
}

func (h *SessionHandler) setVoterTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     voterTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cookieDomain,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.ttl.Seconds()),
	})
}
