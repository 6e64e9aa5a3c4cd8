package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"cronmachine/internal/clock"
	"cronmachine/internal/domain"
	"cronmachine/internal/journal"
	"cronmachine/internal/schedule"
	"cronmachine/internal/scheduler"
)

// Tasks is the read side of the scheduler.
type Tasks interface {
	Snapshot() []domain.TaskView
	Lookup(id string) []domain.TaskView
	State() scheduler.State
}

// Attempts is the read side of the attempt journal.
type Attempts interface {
	Recent(ctx context.Context, limit int) ([]journal.Attempt, error)
	Stats(ctx context.Context) ([]journal.TaskStats, error)
}

type Config struct {
	// RatePerSec limits requests across all clients. Zero disables limiting.
	RatePerSec float64
	Burst      int
	Logger     *zerolog.Logger
}

type Server struct {
	r        *chi.Mux
	tasks    Tasks
	attempts Attempts
	clock    clock.Clock
	log      zerolog.Logger
}

// NewServer builds the status API. attempts may be nil when the journal is
// disabled.
func NewServer(tasks Tasks, attempts Attempts, c clock.Clock, cfg Config) http.Handler {
	r := chi.NewRouter()
	s := &Server{r: r, tasks: tasks, attempts: attempts, clock: c, log: log.Logger}
	if cfg.Logger != nil {
		s.log = *cfg.Logger
	}

	r.Use(middleware.RequestID, middleware.RealIP, s.accessLog, middleware.Recoverer)
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)))
	}

	r.Get("/health", s.health)
	r.Get("/metrics", s.metrics)
	r.Get("/api/tasks", s.listTasks)
	r.Get("/api/tasks/{id}", s.getTask)
	r.Get("/api/tasks/{id}/upcoming", s.upcoming)
	r.Get("/api/attempts", s.listAttempts)
	r.Get("/api/stats", s.stats)

	return r
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	views := s.tasks.Snapshot()

	type counts struct{ runs, failures int }
	byID := map[string]*counts{}
	for _, v := range views {
		c, ok := byID[v.ID]
		if !ok {
			c = &counts{}
			byID[v.ID] = c
		}
		c.runs += v.Runs
		c.failures += v.Failures
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("# TYPE cronmachine_up gauge\ncronmachine_up 1\n")
	fmt.Fprintf(&b, "# TYPE cronmachine_state gauge\ncronmachine_state{state=\"%s\"} 1\n", labelValue(s.tasks.State().String()))
	fmt.Fprintf(&b, "# TYPE cronmachine_tasks gauge\ncronmachine_tasks %d\n", len(views))
	b.WriteString("# TYPE cronmachine_task_runs_total counter\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "cronmachine_task_runs_total{task=\"%s\"} %d\n", labelValue(id), byID[id].runs)
	}
	b.WriteString("# TYPE cronmachine_task_failures_total counter\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "cronmachine_task_failures_total{task=\"%s\"} %d\n", labelValue(id), byID[id].failures)
	}

	w.Header().Set("content-type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(b.String()))
}

// labelEscaper applies the text exposition format's label value escaping.
var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func labelValue(v string) string { return labelEscaper.Replace(v) }

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tasks.Snapshot())
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	views := s.tasks.Lookup(chi.URLParam(r, "id"))
	if len(views) == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

type upcomingResp struct {
	ID       string      `json:"id"`
	Schedule string      `json:"schedule"`
	Next     []time.Time `json:"next"`
}

func (s *Server) upcoming(w http.ResponseWriter, r *http.Request) {
	views := s.tasks.Lookup(chi.URLParam(r, "id"))
	if len(views) == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	n, err := intParam(r, "n", 5, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := s.clock.Now()
	out := make([]upcomingResp, 0, len(views))
	for _, v := range views {
		next, err := schedule.Upcoming(v.Schedule, now, n)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		out = append(out, upcomingResp{ID: v.ID, Schedule: v.Schedule, Next: next})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listAttempts(w http.ResponseWriter, r *http.Request) {
	if s.attempts == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	limit, err := intParam(r, "limit", 50, 1000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	attempts, err := s.attempts.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []journal.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if s.attempts == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}
	stats, err := s.attempts.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []journal.TaskStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func intParam(r *http.Request, name string, def, upper int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > upper {
		return 0, fmt.Errorf("%s must be between 1 and %d", name, upper)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
