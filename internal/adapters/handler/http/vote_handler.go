package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const voterTokenHeader = "X-Voter-Token"

type VoteHandler struct {
	service ports.PollService
	voters  ports.VoterTokenService
}

// NewVoteHandler builds the vote handler. voters may be nil, in which case
// every vote is anonymous.
func NewVoteHandler(service ports.PollService, voters ports.VoterTokenService) *VoteHandler {
	return &VoteHandler{
		service: service,
		voters:  voters,
	}
}

type voteRequest struct {
	Option string `json:"option"`
}

// CastVote godoc
// @Summary      Votes on a poll
// @Description  The voter is taken from the voter_token cookie or the X-Voter-Token header. Without either the
// @Description  vote is anonymous.
// @Tags         votes
// @Accept       json
// @Param        id    path  string       true  "Poll ID"
// @Param        vote  body  voteRequest  true  "Chosen option, matched verbatim"
// @Success      204
// @Failure      400
// @Failure      401
// @Failure      404
// @Failure      409
// @Failure      429
// @Router       /polls/{id}/votes [post]
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	voterID, err := h.voterID(r)
	if err != nil {
		errorResponse(w, err)
		return
	}

	err = h.service.CastVote(r.Context(), ports.CastVoteInput{
		PollID:  chi.URLParam(r, "id"),
		Option:  req.Option,
		VoterID: voterID,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// voterID resolves the voter from the session cookie or the token header. A
// request carrying neither votes anonymously; a bad token is rejected.
func (h *VoteHandler) voterID(r *http.Request) (string, error) {
	if h.voters == nil {
		return "", nil
	}

	token := r.Header.Get(voterTokenHeader)
	if cookie, err := r.Cookie(voterTokenCookie); err == nil && cookie.Value != "" {
		token = cookie.Value
	}
	if token == "" {
		return "", nil
	}

	return h.voters.VoterID(r.Context(), token)
}
