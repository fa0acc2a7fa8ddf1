// Package chi is the HTTP transport: it decodes host-application requests,
// drives the read and write paths, and maps domain sentinels to status codes.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/driftline/contentdex/internal/domain"
	"github.com/driftline/contentdex/internal/domain/query"
	"github.com/driftline/contentdex/internal/intercept"
	"github.com/driftline/contentdex/internal/repository/indexmeta"
	"github.com/driftline/contentdex/internal/syncer"
)

// Error codes returned in JSON error bodies.
const (
	codeBadRequest      = "bad_request"
	codeUnauthorized    = "unauthorized"
	codeEntityNotFound  = "entity_not_found"
	codeTenantNotFound  = "tenant_not_found"
	codeConfiguration   = "configuration_error"
	codePolicyVeto      = "policy_veto"
	codeNoReindex       = "no_reindex_in_progress"
	codeReindexPaused   = "reindex_paused"
	codeReindexCanceled = "reindex_canceled"
	codeEngineError     = "engine_unavailable"
	codeInternalError   = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// SearchService is the read path.
type SearchService interface {
	MaybeIntercept(ctx context.Context, args *query.Args, ictx intercept.Context) *intercept.Result
}

// SyncService is the write path: entity lifecycle events, the dirty queue,
// and tenant index lifecycle.
type SyncService interface {
	OnEntitySaved(ctx context.Context, ev syncer.Event) error
	OnEntityMetaChanged(ctx context.Context, ev syncer.Event, key string) error
	OnEntityDeleted(ctx context.Context, ev syncer.Event) error
	Flush(ctx context.Context) (*syncer.FlushReport, error)
	QueueLen() int
	OnTenantCreated(ctx context.Context, tenantID int64) error
	OnTenantDeleted(ctx context.Context, tenantID int64) error
}

// ReindexService drives a resumable full reindex.
type ReindexService interface {
	Start(ctx context.Context, method string, tenants []int64) error
	Step(ctx context.Context) (done bool, err error)
	Status(ctx context.Context) (*indexmeta.Meta, error)
}

// ReindexFlags raises and clears the cooperative pause/cancel flags.
type ReindexFlags interface {
	RequestPause(ctx context.Context) error
	ClearPause(ctx context.Context) error
	RequestCancel(ctx context.Context) error
	Flags(ctx context.Context) (paused, canceled bool, err error)
}

// Pinger checks one backing dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	search        SearchService
	sync          SyncService
	reindex       ReindexService
	flags         ReindexFlags
	engine        Pinger
	store         Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search SearchService,
	sync SyncService,
	reindex ReindexService,
	flags ReindexFlags,
	engine Pinger,
	store Pinger,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:  search,
		sync:    sync,
		reindex: reindex,
		flags:   flags,
		engine:  engine,
		store:   store,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEntityNotFound, http.StatusNotFound, codeEntityNotFound),
		sentinelHandler(domain.ErrTenantNotFound, http.StatusNotFound, codeTenantNotFound),
		sentinelHandler(domain.ErrNoReindex, http.StatusNotFound, codeNoReindex),
		sentinelHandler(domain.ErrConfiguration, http.StatusBadRequest, codeConfiguration),
		sentinelHandler(domain.ErrPolicyVeto, http.StatusForbidden, codePolicyVeto),
		sentinelHandler(domain.ErrReindexPaused, http.StatusConflict, codeReindexPaused),
		sentinelHandler(domain.ErrReindexCanceled, http.StatusConflict, codeReindexCanceled),
		sentinelHandler(domain.ErrTransport, http.StatusBadGateway, codeEngineError),
	}
	return s
}

// Routes builds a standalone route tree. Middleware (auth, metrics,
// recovery) is attached by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// Register attaches the handlers to an existing router so route patterns
// stay visible to pattern-labelled middleware.
func (s *Server) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)

		r.Route("/sync", func(r chi.Router) {
			r.Post("/events/saved", s.EntitySaved)
			r.Post("/events/meta-changed", s.EntityMetaChanged)
			r.Post("/events/deleted", s.EntityDeleted)
			r.Post("/flush", s.SyncFlush)
			r.Get("/status", s.SyncStatus)
		})

		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", s.TenantCreated)
			r.Delete("/{tenantID}", s.TenantDeleted)
		})

		r.Route("/reindex", func(r chi.Router) {
			r.Post("/", s.ReindexStart)
			r.Post("/step", s.ReindexStep)
			r.Post("/pause", s.ReindexPause)
			r.Post("/resume", s.ReindexResume)
			r.Post("/cancel", s.ReindexCancel)
			r.Get("/status", s.ReindexStatus)
		})
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	args, err := req.Query.toArgs()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	res := s.search.MaybeIntercept(r.Context(), args, req.Context.toContext())
	writeJSON(w, http.StatusOK, searchResponseFromResult(res))
}

// EntitySaved handles POST /v1/sync/events/saved.
func (s *Server) EntitySaved(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, func(ctx context.Context, ev syncer.Event, _ string) error {
		return s.sync.OnEntitySaved(ctx, ev)
	})
}

// EntityMetaChanged handles POST /v1/sync/events/meta-changed.
func (s *Server) EntityMetaChanged(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, s.sync.OnEntityMetaChanged)
}

// EntityDeleted handles POST /v1/sync/events/deleted.
func (s *Server) EntityDeleted(w http.ResponseWriter, r *http.Request) {
	s.handleEvent(w, r, func(ctx context.Context, ev syncer.Event, _ string) error {
		return s.sync.OnEntityDeleted(ctx, ev)
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, fn func(context.Context, syncer.Event, string) error) {
	var p entityEventPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if p.TenantID <= 0 || p.EntityID <= 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "tenant_id and entity_id are required")
		return
	}

	if err := fn(r.Context(), p.toEvent(), p.MetaKey); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"queued": s.sync.QueueLen()})
}

// SyncFlush handles POST /v1/sync/flush.
func (s *Server) SyncFlush(w http.ResponseWriter, r *http.Request) {
	report, err := s.sync.Flush(r.Context())
	if err != nil {
		// Partial flushes still carry a report worth logging before the
		// error response.
		if report != nil {
			s.logger.Warn("flush failed",
				zap.Error(err),
				zap.Int("indexed", report.Indexed),
				zap.Int("failures", len(report.Failures)),
			)
		}
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, flushResponseFromReport(report))
}

// SyncStatus handles GET /v1/sync/status.
func (s *Server) SyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"queued": s.sync.QueueLen()})
}

// TenantCreated handles POST /v1/tenants.
func (s *Server) TenantCreated(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TenantID <= 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "tenant_id is required")
		return
	}

	if err := s.sync.OnTenantCreated(r.Context(), req.TenantID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"tenant_id": req.TenantID})
}

// TenantDeleted handles DELETE /v1/tenants/{tenantID}.
func (s *Server) TenantDeleted(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
	if err != nil || tenantID <= 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid tenant id")
		return
	}

	if err := s.sync.OnTenantDeleted(r.Context(), tenantID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReindexStart handles POST /v1/reindex.
func (s *Server) ReindexStart(w http.ResponseWriter, r *http.Request) {
	var req reindexStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	method := req.Method
	if method == "" {
		method = indexmeta.MethodInteractive
	}

	if err := s.reindex.Start(r.Context(), method, req.Tenants); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"method": method})
}

// ReindexStep handles POST /v1/reindex/step. Each call processes one page;
// interactive runs call it repeatedly until done.
func (s *Server) ReindexStep(w http.ResponseWriter, r *http.Request) {
	done, err := s.reindex.Step(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"done": done})
}

// ReindexPause handles POST /v1/reindex/pause.
func (s *Server) ReindexPause(w http.ResponseWriter, r *http.Request) {
	s.reindexFlagOp(w, r, s.flags.RequestPause, "paused")
}

// ReindexResume handles POST /v1/reindex/resume.
func (s *Server) ReindexResume(w http.ResponseWriter, r *http.Request) {
	s.reindexFlagOp(w, r, s.flags.ClearPause, "resumed")
}

// ReindexCancel handles POST /v1/reindex/cancel. The run's state is cleared
// on its next step, not here.
func (s *Server) ReindexCancel(w http.ResponseWriter, r *http.Request) {
	s.reindexFlagOp(w, r, s.flags.RequestCancel, "canceled")
}

func (s *Server) reindexFlagOp(w http.ResponseWriter, r *http.Request, op func(context.Context) error, state string) {
	// A flag without a run is meaningless; surface it as not found.
	if _, err := s.reindex.Status(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	if err := op(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"state": state})
}

// ReindexStatus handles GET /v1/reindex/status.
func (s *Server) ReindexStatus(w http.ResponseWriter, r *http.Request) {
	meta, err := s.reindex.Status(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	paused, canceled, err := s.flags.Flags(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"meta":     meta,
		"paused":   paused,
		"canceled": canceled,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	for name, p := range map[string]Pinger{"engine": s.engine, "store": s.store} {
		if p == nil {
			continue
		}
		if err := p.Ping(r.Context()); err != nil {
			checks[name] = "fail"
			healthy = false
			s.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		checks[name] = "ok"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEntityNotFound,
		domain.ErrTenantNotFound,
		domain.ErrNoReindex,
		domain.ErrConfiguration,
		domain.ErrPolicyVeto,
		domain.ErrReindexPaused,
		domain.ErrReindexCanceled,
		domain.ErrTransport,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
