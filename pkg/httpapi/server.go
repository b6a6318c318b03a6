// Package httpapi exposes the interview engine over HTTP: session lifecycle
// endpoints, per-session usage rollups, Prometheus metrics, health, and the
// in-memory log buffer.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interviewer/pkg/catalog"
	"interviewer/pkg/interview"
	"interviewer/pkg/logx"
	"interviewer/pkg/metrics"
	"interviewer/pkg/version"
)

// logLimit caps the number of entries served by the logs endpoint.
const logLimit = 1000

// Engine is the session lifecycle surface the API serves.
type Engine interface {
	Start(ctx context.Context, topics []catalog.Topic, opts interview.Options) (*interview.Session, error)
	Resume(ctx context.Context, id string, patch interview.Patch) (*interview.Session, error)
	ForceEnd(ctx context.Context, id string) (*interview.Session, error)
	Get(ctx context.Context, id string) (*interview.Session, error)
	List(ctx context.Context) ([]*interview.Session, error)
	Delete(ctx context.Context, id string) error
}

var _ Engine = (*interview.Engine)(nil)

// UsageQuerier rolls up recorded token and cost series for one session.
type UsageQuerier interface {
	GetSessionMetrics(ctx context.Context, sessionID string) (*metrics.SessionMetrics, error)
	GetSessionMetricsByStage(ctx context.Context, sessionID string) (map[string]*metrics.SessionMetrics, error)
	GetSessionMetricsByModel(ctx context.Context, sessionID string) (map[string]*metrics.SessionMetrics, error)
}

var _ UsageQuerier = (*metrics.QueryService)(nil)

// Server handles the interview HTTP API.
type Server struct {
	engine   Engine
	usage    UsageQuerier
	topics   []catalog.Topic
	defaults interview.Options
	logger   *logx.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithUsage wires the Prometheus rollup service. Without it the usage
// endpoint answers 503.
func WithUsage(q UsageQuerier) ServerOption {
	return func(s *Server) { s.usage = q }
}

// WithCatalog sets the topic set used for starts whose request carries no
// topics of its own.
func WithCatalog(topics []catalog.Topic) ServerOption {
	return func(s *Server) { s.topics = topics }
}

// WithDefaults overrides the interview bounds applied when a start request
// leaves them unset.
func WithDefaults(opts interview.Options) ServerOption {
	return func(s *Server) { s.defaults = opts }
}

// NewServer creates the API server around an engine.
func NewServer(engine Engine, opts ...ServerOption) *Server {
	s := &Server{
		engine: engine,
		defaults: interview.Options{
			MaxIterationsPerTopic: interview.DefaultMaxIterationsPerTopic,
			MaxJudgeRetries:       interview.DefaultMaxJudgeRetries,
		},
		logger: logx.NewLogger("httpapi"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/logs", s.handleLogs)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/answer", s.handleAnswer)
			r.Post("/end", s.handleForceEnd)
			r.Get("/metrics", s.handleUsage)
		})
	})

	return r
}

// startRequest is the body of POST /sessions. Every field is optional:
// omitted topics fall back to the server catalog, omitted bounds to the
// server defaults. The bounds are pointers so an explicit zero survives
// decoding.
type startRequest struct {
	Topics                []catalog.Topic `json:"topics,omitempty"`
	MaxIterationsPerTopic *int            `json:"max_iterations_per_topic,omitempty"`
	MaxJudgeRetries       *int            `json:"max_judge_retries,omitempty"`
}

// answerRequest is the body of POST /sessions/{id}/answer.
type answerRequest struct {
	Answer string `json:"answer"`
}

// sessionView is the wire shape of one session summary.
type sessionView struct {
	SessionID       string `json:"session_id"`
	Stage           string `json:"stage"`
	Topic           string `json:"topic,omitempty"`
	Question        string `json:"question,omitempty"`
	FinalFeedback   string `json:"final_feedback,omitempty"`
	TopicIndex      int    `json:"topic_index"`
	TopicsTotal     int    `json:"topics_total"`
	TotalTokens     int    `json:"total_tokens"`
	WaitingForInput bool   `json:"waiting_for_input"`
	Complete        bool   `json:"complete"`
}

// sessionDetail extends the summary with the full conversation history.
type sessionDetail struct {
	sessionView
	History []interview.Event `json:"history"`
}

// usageView aggregates Prometheus rollups for one session.
type usageView struct {
	Session *metrics.SessionMetrics            `json:"session"`
	ByStage map[string]*metrics.SessionMetrics `json:"by_stage,omitempty"`
	ByModel map[string]*metrics.SessionMetrics `json:"by_model,omitempty"`
}

func viewOf(sess *interview.Session) sessionView {
	st := sess.State
	return sessionView{
		SessionID:       sess.ID,
		Stage:           sess.Stage.String(),
		Topic:           st.CurrentTopic.Name,
		Question:        st.CurrentQuestion,
		FinalFeedback:   st.FinalFeedback,
		TopicIndex:      st.CurrentTopicIndex,
		TopicsTotal:     len(st.Topics),
		TotalTokens:     st.TotalTokens,
		WaitingForInput: st.WaitingForUserInput,
		Complete:        sess.Complete(),
	}
}

func detailOf(sess *interview.Session) sessionDetail {
	history := sess.State.ConversationHistory
	if history == nil {
		history = []interview.Event{}
	}
	return sessionDetail{
		sessionView: viewOf(sess),
		History:     history,
	}
}

// handleStart implements POST /sessions.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	topics := req.Topics
	if len(topics) == 0 {
		topics = s.topics
	} else if err := catalog.Validate(topics); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid topics: %v", err))
		return
	}

	opts := s.defaults
	if req.MaxIterationsPerTopic != nil {
		opts.MaxIterationsPerTopic = *req.MaxIterationsPerTopic
	}
	if req.MaxJudgeRetries != nil {
		opts.MaxJudgeRetries = *req.MaxJudgeRetries
	}

	sess, err := s.engine.Start(r.Context(), topics, opts)
	if err != nil {
		s.engineError(w, err, "start session")
		return
	}

	s.logger.Info("Started session %s (%d topics)", sess.ID, len(sess.State.Topics))
	s.writeJSON(w, http.StatusCreated, viewOf(sess))
}

// handleList implements GET /sessions.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.engine.List(r.Context())
	if err != nil {
		s.engineError(w, err, "list sessions")
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, viewOf(sess))
	}
	s.writeJSON(w, http.StatusOK, views)
}

// handleGet implements GET /sessions/{id}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := s.engine.Get(r.Context(), id)
	if err != nil {
		s.engineError(w, err, "get session %s", id)
		return
	}
	s.writeJSON(w, http.StatusOK, detailOf(sess))
}

// handleDelete implements DELETE /sessions/{id}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.engine.Delete(r.Context(), id); err != nil {
		s.engineError(w, err, "delete session %s", id)
		return
	}

	s.logger.Info("Deleted session %s", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleAnswer implements POST /sessions/{id}/answer. The answer is
// sanitized before it reaches the engine; an empty answer is accepted and
// judged by the validation stage like any other.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := SanitizeAnswer(req.Answer)
	if err != nil {
		s.logger.Warn("Rejected answer for session %s: %v", id, err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.engine.Resume(r.Context(), id, interview.Patch{Answer: answer})
	if err != nil {
		s.engineError(w, err, "resume session %s", id)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(sess))
}

// handleForceEnd implements POST /sessions/{id}/end.
func (s *Server) handleForceEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := s.engine.ForceEnd(r.Context(), id)
	if err != nil {
		s.engineError(w, err, "end session %s", id)
		return
	}

	s.logger.Info("Force-ended session %s", id)
	s.writeJSON(w, http.StatusOK, viewOf(sess))
}

// handleUsage implements GET /sessions/{id}/metrics. The rollups come from
// Prometheus, not the checkpoint store, so they survive session deletion and
// answer for unknown ids with zeroes.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		s.writeError(w, http.StatusServiceUnavailable, "metrics backend not configured")
		return
	}
	id := chi.URLParam(r, "id")

	rollup, err := s.usage.GetSessionMetrics(r.Context(), id)
	if err != nil {
		s.logger.Error("Metrics query for session %s failed: %v", id, err)
		s.writeError(w, http.StatusBadGateway, "metrics query failed")
		return
	}
	byStage, err := s.usage.GetSessionMetricsByStage(r.Context(), id)
	if err != nil {
		s.logger.Error("Per-stage metrics query for session %s failed: %v", id, err)
		s.writeError(w, http.StatusBadGateway, "metrics query failed")
		return
	}
	byModel, err := s.usage.GetSessionMetricsByModel(r.Context(), id)
	if err != nil {
		s.logger.Error("Per-model metrics query for session %s failed: %v", id, err)
		s.writeError(w, http.StatusBadGateway, "metrics query failed")
		return
	}

	s.writeJSON(w, http.StatusOK, usageView{Session: rollup, ByStage: byStage, ByModel: byModel})
}

// handleHealth implements GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
	})
}

// handleLogs implements GET /logs. Query parameters: component filters by
// logger component, since (RFC3339) drops older entries.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	component := query.Get("component")
	sinceStr := query.Get("since")

	var since time.Time
	if sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since parameter (use RFC3339)")
			return
		}
		since = parsed
	}

	entries := logx.RecentEntries(component, since)
	if len(entries) > logLimit {
		entries = entries[len(entries)-logLimit:]
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrSessionComplete),
		errors.Is(err, interview.ErrNotSuspended),
		errors.Is(err, interview.ErrSessionBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// engineError logs an engine failure and writes its mapped status. Client
// errors log at debug; everything else is a real failure.
func (s *Server) engineError(w http.ResponseWriter, err error, format string, args ...any) {
	status := statusFor(err)
	msg := fmt.Sprintf(format, args...)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Failed to %s: %v", msg, err)
	} else {
		s.logger.Debug("Refused to %s: %v", msg, err)
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
