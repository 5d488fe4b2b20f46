// Package web serves the goal tracker over HTTP: a small HTML view and a JSON
// API that re-derives availability on every request.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/metalagman/goalpath/internal/model"
	"github.com/metalagman/goalpath/internal/notify"
	"github.com/metalagman/goalpath/internal/planner"
	"github.com/metalagman/goalpath/internal/tools"
	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// Server provides the web handlers.
type Server struct {
	tracker    *tracker.Tracker
	dispatcher *tools.Dispatcher
	planner    *planner.Planner
	inbox      *notify.Inbox
	index      *template.Template
}

// Option configures a Server.
type Option func(*Server)

// WithInbox exposes pending completion events on GET /notifications.
func WithInbox(inbox *notify.Inbox) Option {
	return func(s *Server) {
		s.inbox = inbox
	}
}

//go:embed templates/*.html
var templatesFS embed.FS

// NewServer creates a new web server.
func NewServer(tr *tracker.Tracker, dispatcher *tools.Dispatcher, p *planner.Planner, opts ...Option) (*Server, error) {
	index, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	s := &Server{tracker: tr, dispatcher: dispatcher, planner: p, index: index}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /goals", s.handleGoals)
	mux.HandleFunc("GET /goals/{id}", s.handleGoal)
	mux.HandleFunc("GET /goals/{id}/available", s.handleAvailable)
	mux.HandleFunc("POST /tasks/{id}/toggle", s.handleToggle)
	mux.HandleFunc("DELETE /tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /tools/{name}", s.handleTool)
	mux.HandleFunc("POST /plans", s.handlePlan)
	if s.inbox != nil {
		mux.HandleFunc("GET /notifications", s.handleNotifications)
	}
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	goals, err := s.tracker.Goals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]tools.GoalView, 0, len(goals))
	for _, g := range goals {
		tree, snap, err := s.tracker.Classify(r.Context(), g.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		views = append(views, tools.NewGoalView(tree, snap))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, views); err != nil {
		log.Error().Err(err).Msg("render index")
	}
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.tracker.Goals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	tree, snap, err := s.tracker.Classify(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools.NewGoalView(tree, snap))
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tracker.AvailableTasks(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	task, err := s.tracker.ToggleTaskCompletion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if target := r.URL.Query().Get("redirect"); isLocalPath(target) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, tools.Result{Error: err.Error(), Kind: tracker.KindValidation})
		return
	}
	res := s.dispatcher.DispatchJSON(r.Context(), r.PathValue("name"), body)
	status := http.StatusOK
	if !res.OK {
		status = statusFor(res.Kind)
	}
	writeJSON(w, status, res)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, &tracker.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	plan, err := planner.Parse(body)
	if err != nil {
		writeError(w, &tracker.ValidationError{Field: "plan", Reason: err.Error()})
		return
	}
	if err := plan.Validate(); err != nil {
		writeError(w, &tracker.ValidationError{Field: "plan", Reason: err.Error()})
		return
	}
	res, err := s.planner.Apply(r.Context(), plan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	events := s.inbox.Drain()
	if events == nil {
		events = []notify.CompletionEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := tracker.Kind(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", kind).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func statusFor(kind string) int {
	switch kind {
	case tracker.KindValidation:
		return http.StatusBadRequest
	case tracker.KindNotFound, tools.KindUnknownTool:
		return http.StatusNotFound
	case tracker.KindGraphIntegrity:
		return http.StatusConflict
	case tracker.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func isLocalPath(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.Contains(target, `\`)
}
