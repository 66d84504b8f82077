// Package httpapi exposes the match service over HTTP.
//
// Routes:
//
//	GET  /health                      → liveness
//	GET  /matches                     → list matches (filters in query)
//	GET  /matches/stats               → aggregate counters (same filters)
//	GET  /matches/{id}?side=          → fetch one match, marking it viewed by side
//	POST /matches/{id}/view           → mark viewed          {"side"}
//	POST /matches/{id}/action         → interested / not     {"side","action","notes"}
//	POST /matches/{id}/favorite       → toggle favorite      {"side","favorite"}
//	POST /scan/cv/{cvAnalysisId}      → scan jobs for a CV analysis
//	POST /scan/job/{jobId}            → scan candidates for a job
//	GET  /score?candidateId=&jobId=   → direct score, cached
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/model"
	"jobmate/match-service/internal/scoring"
)

// ─── Dependencies ─────────────────────────────────────────────────────────────

// Lifecycle is the match lifecycle service.
type Lifecycle interface {
	Get(ctx context.Context, id int64, viewer string) (*model.Match, error)
	View(ctx context.Context, id int64, side string) (*model.Match, error)
	Act(ctx context.Context, id int64, side, action string, notes *string) (*model.Match, error)
	Favorite(ctx context.Context, id int64, side string, favorite bool) (*model.Match, error)
	List(ctx context.Context, f model.MatchFilter) ([]model.Match, error)
	Stats(ctx context.Context, f model.MatchFilter) (model.MatchStats, error)
}

// Scanner runs auto-match scans by id.
type Scanner interface {
	ScanCVAnalysis(ctx context.Context, cvAnalysisID int64) ([]model.Match, error)
	ScanJob(ctx context.Context, jobID int64) ([]model.Match, error)
}

// Scorer computes on-demand scores.
type Scorer interface {
	Direct(ctx context.Context, candidateID, jobID int64) (scoring.Result, error)
}

// ─── Request / response types ─────────────────────────────────────────────────

type viewRequest struct {
	Side string `json:"side" validate:"required,oneof=candidate company"`
}

type actionRequest struct {
	Side   string  `json:"side" validate:"required,oneof=candidate company"`
	Action string  `json:"action" validate:"required,oneof=interested not_interested applied contacted"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

type favoriteRequest struct {
	Side     string `json:"side" validate:"required,oneof=candidate company"`
	Favorite *bool  `json:"favorite" validate:"required"`
}

// ScanResponse reports how many matches a scan created.
type ScanResponse struct {
	Created int           `json:"created"`
	Matches []model.Match `json:"matches"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	lc       Lifecycle
	scan     Scanner
	scores   Scorer
	validate *validator.Validate
	log      *zap.Logger
}

// NewHandler returns a configured Handler. scores may be nil, in which case
// /score answers 503.
func NewHandler(lc Lifecycle, scan Scanner, scores Scorer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		lc:       lc,
		scan:     scan,
		scores:   scores,
		validate: validator.New(),
		log:      log.With(zap.String("component", "http")),
	}
}

// RegisterRoutes mounts all match-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/matches", h.handleMatches)
	mux.HandleFunc("/matches/", h.handleMatch)
	mux.HandleFunc("/scan/", h.handleScan)
	mux.HandleFunc("/score", h.handleScore)
}

// Routes returns the handler tree wrapped in the request middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return RequestLogger(h.log)(mux)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{"status": "ok"})
}

// handleMatches handles GET /matches
func (h *Handler) handleMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, err := filterFromQuery(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	matches, err := h.lc.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, matches)
}

// handleMatch handles /matches/stats, GET /matches/{id} and
// POST /matches/{id}/view|action|favorite
func (h *Handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	if len(parts) == 2 && parts[1] == "stats" {
		h.stats(w, r)
		return
	}

	if len(parts) < 2 || len(parts) > 3 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid match id", http.StatusBadRequest)
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getMatch(w, r, id)
		return
	}

	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch parts[2] {
	case "view":
		h.viewMatch(w, r, id)
	case "action":
		h.actOnMatch(w, r, id)
	case "favorite":
		h.favoriteMatch(w, r, id)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", parts[2]), http.StatusNotFound)
	}
}

// handleScan handles POST /scan/cv/{id} and POST /scan/job/{id}
func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}

	var created []model.Match
	switch parts[1] {
	case "cv":
		created, err = h.scan.ScanCVAnalysis(r.Context(), id)
	case "job":
		created, err = h.scan.ScanJob(r.Context(), id)
	default:
		jsonError(w, fmt.Sprintf("unknown scan target %q", parts[1]), http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, ScanResponse{Created: len(created), Matches: created})
}

// handleScore handles GET /score?candidateId=&jobId=
func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.scores == nil {
		jsonError(w, "scoring unavailable", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	candidateID, err1 := queryInt(q.Get("candidateId"))
	jobID, err2 := queryInt(q.Get("jobId"))
	if err1 != nil || err2 != nil || candidateID <= 0 || jobID <= 0 {
		jsonError(w, "candidateId and jobId must be positive integers", http.StatusBadRequest)
		return
	}
	res, err := h.scores.Direct(r.Context(), candidateID, jobID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, res)
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, err := filterFromQuery(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	st, err := h.lc.Stats(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, st)
}

func (h *Handler) getMatch(w http.ResponseWriter, r *http.Request, id int64) {
	m, err := h.lc.Get(r.Context(), id, r.URL.Query().Get("side"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, m)
}

func (h *Handler) viewMatch(w http.ResponseWriter, r *http.Request, id int64) {
	var body viewRequest
	if !h.decode(w, r, &body) {
		return
	}
	m, err := h.lc.View(r.Context(), id, body.Side)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, m)
}

func (h *Handler) actOnMatch(w http.ResponseWriter, r *http.Request, id int64) {
	var body actionRequest
	if !h.decode(w, r, &body) {
		return
	}
	m, err := h.lc.Act(r.Context(), id, body.Side, body.Action, body.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, m)
}

func (h *Handler) favoriteMatch(w http.ResponseWriter, r *http.Request, id int64) {
	var body favoriteRequest
	if !h.decode(w, r, &body) {
		return
	}
	m, err := h.lc.Favorite(r.Context(), id, body.Side, *body.Favorite)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, m)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		jsonError(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}

// fail writes err as JSON with the status its code maps to.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	jsonError(w, apperr.Message(err), code)
}

func filterFromQuery(r *http.Request) (model.MatchFilter, error) {
	q := r.URL.Query()
	var (
		f   model.MatchFilter
		err error
	)
	if f.CandidateID, err = queryInt(q.Get("candidateId")); err != nil {
		return f, fmt.Errorf("invalid candidateId")
	}
	if f.JobID, err = queryInt(q.Get("jobId")); err != nil {
		return f, fmt.Errorf("invalid jobId")
	}
	if f.CompanyUserID, err = queryInt(q.Get("companyUserId")); err != nil {
		return f, fmt.Errorf("invalid companyUserId")
	}
	if s := q.Get("status"); s != "" {
		f.Status = model.Status(s)
	}
	if s := q.Get("minScore"); s != "" {
		if f.MinScore, err = strconv.ParseFloat(s, 64); err != nil {
			return f, fmt.Errorf("invalid minScore")
		}
	}
	if s := q.Get("limit"); s != "" {
		if f.Limit, err = strconv.Atoi(s); err != nil || f.Limit < 0 {
			return f, fmt.Errorf("invalid limit")
		}
	}
	return f, nil
}

func queryInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
