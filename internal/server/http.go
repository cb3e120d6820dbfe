package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/store"
	"github.com/alfredjeanlab/clubdesk/internal/table"
)

const (
	defaultPageSize = table.DefaultPageSize
	maxPageSize     = 100
)

// tournamentSortKeys are the keys GET /v1/tournaments accepts in sort.
var tournamentSortKeys = map[string]bool{
	model.KeyName: true, model.KeyCity: true, model.KeyClub: true, model.KeyType: true,
	model.KeyStatus: true, model.KeyStart: true, model.KeyEnd: true, model.KeyParticipants: true,
}

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health and
// GET /metrics) must include a valid Authorization: Bearer <token> header.
func (s *ClubServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/clubs", s.handleListClubs)
	mux.HandleFunc("GET /v1/clubs/{id}", s.handleGetClub)
	mux.HandleFunc("PATCH /v1/clubs/{id}", s.handleUpdateClub)
	mux.HandleFunc("POST /v1/clubs/{id}/approve", s.handleApproveClub)
	mux.HandleFunc("POST /v1/clubs/{id}/reject", s.handleRejectClub)
	mux.HandleFunc("DELETE /v1/clubs/{id}", s.handleDelete("club"))
	mux.HandleFunc("GET /v1/tournaments", s.handleListTournaments)
	mux.HandleFunc("DELETE /v1/tournaments/{id}", s.handleDelete("tournament"))
	mux.HandleFunc("GET /v1/users", s.handleListUsers)
	mux.HandleFunc("DELETE /v1/users/{id}", s.handleDelete("user"))
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)

	h := AuthMiddleware(authToken, mux)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
		h = s.metrics.Middleware(h)
	}
	return RequestIDMiddleware(RecoveryMiddleware(s.logger, LoggingMiddleware(s.logger, h)))
}

// handleHealth handles GET /v1/health.
func (s *ClubServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Sugar().Warnw("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Clubs ---

// handleListClubs handles GET /v1/clubs.
func (s *ClubServer) handleListClubs(w http.ResponseWriter, r *http.Request) {
	clubs, err := s.store.ListClubs(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to list clubs")
		return
	}
	if clubs == nil {
		clubs = []model.Club{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"clubs": clubs})
}

// handleGetClub handles GET /v1/clubs/{id}.
func (s *ClubServer) handleGetClub(w http.ResponseWriter, r *http.Request) {
	club, err := s.store.GetClub(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err, "club not found")
		return
	}
	writeJSON(w, http.StatusOK, club)
}

// handleUpdateClub handles PATCH /v1/clubs/{id}.
func (s *ClubServer) handleUpdateClub(w http.ResponseWriter, r *http.Request) {
	var u model.ClubUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	club, err := s.updateClub(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.writeStoreError(w, err, "club not found")
		return
	}
	writeJSON(w, http.StatusOK, club)
}

// handleApproveClub handles POST /v1/clubs/{id}/approve.
func (s *ClubServer) handleApproveClub(w http.ResponseWriter, r *http.Request) {
	club, err := s.moderateClub(r.Context(), r.PathValue("id"), model.StatusApproved, "")
	if err != nil {
		s.writeStoreError(w, err, "club not found")
		return
	}
	writeJSON(w, http.StatusOK, club)
}

// handleRejectClub handles POST /v1/clubs/{id}/reject.
func (s *ClubServer) handleRejectClub(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	club, err := s.moderateClub(r.Context(), r.PathValue("id"), model.StatusRejected, strings.TrimSpace(body.Reason))
	if err != nil {
		s.writeStoreError(w, err, "club not found")
		return
	}
	writeJSON(w, http.StatusOK, club)
}

// handleDelete returns the DELETE handler for one entity kind.
func (s *ClubServer) handleDelete(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.deleteEntity(r.Context(), kind, r.PathValue("id")); err != nil {
			s.writeStoreError(w, err, kind+" not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- Tournaments ---

// handleListTournaments handles GET /v1/tournaments. Filtering, sorting and
// pagination happen in the database.
func (s *ClubServer) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	filter, page, size, err := s.parseTournamentQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tournaments, total, err := s.store.ListTournaments(r.Context(), filter)
	if err != nil {
		s.writeStoreError(w, err, "failed to list tournaments")
		return
	}
	if tournaments == nil {
		tournaments = []model.Tournament{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tournaments": tournaments,
		"total":       total,
		"page":        page,
		"page_size":   size,
	})
}

func (s *ClubServer) parseTournamentQuery(r *http.Request) (store.TournamentFilter, int, int, error) {
	q := r.URL.Query()
	f := store.TournamentFilter{
		Search: strings.TrimSpace(q.Get("search")),
		Status: q.Get("status"),
		Sort:   q.Get("sort"),
	}

	if f.Status != "" && !model.Status(f.Status).IsValid() {
		return f, 0, 0, inputError("unknown status " + strconv.Quote(f.Status))
	}
	if v := q.Get("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t == "" {
				continue
			}
			if !model.TournamentType(t).IsValid() {
				return f, 0, 0, inputError("unknown type " + strconv.Quote(t))
			}
			f.Types = append(f.Types, t)
		}
	}
	if f.Sort != "" && !tournamentSortKeys[strings.TrimPrefix(f.Sort, "-")] {
		return f, 0, 0, inputError("unknown sort key " + strconv.Quote(f.Sort))
	}

	raw := map[string]string{}
	for _, k := range []string{"start_from", "start_to"} {
		if v := q.Get(k); v != "" {
			raw[k] = v
		}
	}
	dates, err := table.ParseFilters([]table.Descriptor{{Key: model.KeyStart, Kind: table.DateRange}}, raw, s.loc)
	if err != nil {
		return f, 0, 0, inputError(err.Error())
	}
	if v, ok := dates[model.KeyStart]; ok {
		if !v.From.IsZero() {
			f.StartFrom = table.StartOfDay(v.From, s.loc)
		}
		if !v.To.IsZero() {
			f.StartBefore = table.EndOfDay(v.To, s.loc)
		}
	}

	page, err := positiveParam(q.Get("page"), 1)
	if err != nil {
		return f, 0, 0, inputError("page: " + err.Error())
	}
	size, err := positiveParam(q.Get("page_size"), defaultPageSize)
	if err != nil {
		return f, 0, 0, inputError("page_size: " + err.Error())
	}
	size = min(size, maxPageSize)
	if page-1 > math.MaxInt/size {
		return f, 0, 0, inputError("page: too large")
	}
	f.Limit = size
	f.Offset = (page - 1) * size
	return f, page, size, nil
}

// --- Users ---

// handleListUsers handles GET /v1/users.
func (s *ClubServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeStoreError(w, err, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// --- helpers ---

func positiveParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, errors.New("must be a positive integer")
	}
	return n, nil
}

// writeStoreError maps domain and store errors to HTTP statuses. notFoundMsg
// is the message sent with a 404.
func (s *ClubServer) writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("store operation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response: a short status label and the
// human-readable message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_")),
		"message": message,
	})
}
