package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type createPollResponse struct {
	ID string `json:"id"`
}

type pollResponse struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// CreatePoll godoc
// @Summary      Creates a poll
// @Description  Options are trimmed and blank ones dropped; at least two distinct options must remain.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Param        poll  body      createPollRequest  true  "Question and ordered options"
// @Success      201   {object}  createPollResponse
// @Failure      400
// @Failure      413
// @Router       /polls [post]
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	poll, err := h.service.CreatePoll(r.Context(), ports.CreatePollInput{
		Question: req.Question,
		Options:  req.Options,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPollResponse{ID: poll.ID})
}

// ListPolls godoc
// @Summary      Lists polls
// @Description  Without page and limit every poll is returned in creation order. With either of them one page
// @Description  is returned: page below 1 becomes 1, limit outside 1..100 becomes 10.
// @Tags         polls
// @Produce      json
// @Param        page   query  int  false  "Page number, starting at 1"
// @Param        limit  query  int  false  "Page size"
// @Success      200    {array}  domain.PollSummary
// @Router       /polls [get]
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	var input ports.ListPollsInput

	q := r.URL.Query()
	if q.Has("page") || q.Has("limit") {
		input.Page, _ = strconv.Atoi(q.Get("page"))
		input.Limit, _ = strconv.Atoi(q.Get("limit"))
		// Keeps an explicit but unusable limit paginated.
		input.Page = max(input.Page, 1)
	}

	polls, err := h.service.ListPolls(r.Context(), input)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, polls)
}

// GetPoll godoc
// @Summary      Gets a poll
// @Tags         polls
// @Produce      json
// @Param        id   path      string  true  "Poll ID"
// @Success      200  {object}  pollResponse
// @Failure      404
// @Router       /polls/{id} [get]
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pollResponse{
		ID:       poll.ID,
		Question: poll.Question,
		Options:  poll.Options,
	})
}

// GetResults godoc
// @Summary      Gets the results of a poll
// @Description  Tallies come in the poll's option order. The X-Total-Votes header carries the vote total.
// @Tags         polls
// @Produce      json
// @Param        id   path   string  true  "Poll ID"
// @Success      200  {array}  domain.ResultTally
// @Header       200  {integer}  X-Total-Votes  "Total votes"
// @Failure      404
// @Router       /polls/{id}/results [get]
func (h *PollHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.GetResults(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		errorResponse(w, err)
		return
	}

	w.Header().Set("X-Total-Votes", strconv.FormatInt(results.TotalVotes, 10))
	writeJSON(w, http.StatusOK, results.Tallies)
}
