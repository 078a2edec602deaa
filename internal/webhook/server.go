package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/go-github/v66/github"

	"AssetWarden/internal/bot"
	"AssetWarden/internal/logger"
	"AssetWarden/internal/review"
)

const (
	// maxPayloadSize is the maximum webhook body size in bytes.
	maxPayloadSize = 5 << 20 // 5 MB

	// shutdownTimeout bounds the graceful stop.
	shutdownTimeout = 5 * time.Second
)

// Reviewer reviews one pull request.
type Reviewer interface {
	Review(ctx context.Context, job bot.Job) (*review.Verdict, error)
}

// Server receives GitHub webhooks and reviews pull requests one at a time.
type Server struct {
	addr     string        // addr is the HTTP listen address
	secret   []byte        // secret validates delivery signatures, empty skips the check
	reviewer Reviewer      // reviewer handles queued jobs
	jobs     chan bot.Job  // jobs holds deliveries waiting for the worker
	server   *http.Server  // server is the underlying HTTP server
	once     sync.Once     // once guards closing jobs
	done     chan struct{} // done is closed when the worker exits
}

// New creates a server with room for queueSize pending reviews.
func New(addr, secret string, reviewer Reviewer, queueSize int) *Server {
	if queueSize <= 0 {
		queueSize = 1
	}

	return &Server{
		addr:     addr,
		secret:   []byte(secret),
		reviewer: reviewer,
		jobs:     make(chan bot.Job, queueSize),
		done:     make(chan struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/webhook", s.handleWebhook)
	r.Get("/health", s.handleHealth)

	return r
}

// Run serves until ctx is cancelled, then drains the queue and stops.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go s.work(ctx)

	errc := make(chan error, 1)
	go func() {
		logger.Info("webhook server started", "addr", s.addr)
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.closeQueue()
		<-s.done
		return err
	case <-ctx.Done():
	}

	return s.Stop()
}

// Stop shuts a running server down and waits for the worker.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)

	s.closeQueue()
	<-s.done

	return err
}

func (s *Server) closeQueue() {
	s.once.Do(func() { close(s.jobs) })
}

// work reviews queued jobs sequentially until the queue is closed.
func (s *Server) work(ctx context.Context) {
	defer close(s.done)

	for job := range s.jobs {
		if _, err := s.reviewer.Review(ctx, job); err != nil {
			logger.Error("review failed", "pr", job.String(), "run", job.RunID, "error", err)
		}
	}
}

// handleWebhook handles POST /webhook deliveries.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadSize)

	payload, err := github.ValidatePayload(r, s.secret)
	if err != nil {
		logger.Warn("rejected webhook delivery", "delivery", github.DeliveryID(r), "error", err)
		writeError(w, http.StatusUnauthorized, "invalid payload")
		return
	}

	eventType := github.WebHookType(r)

	switch eventType {
	case "ping":
		writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
		return
	case "pull_request":
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed pull_request event")
		return
	}

	pr, ok := event.(*github.PullRequestEvent)
	if !ok {
		writeError(w, http.StatusBadRequest, "unexpected event payload")
		return
	}

	job, ok := jobFor(pr, github.DeliveryID(r))
	if !ok {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}

	if !s.enqueue(job) {
		logger.Warn("review queue full", "pr", job.String(), "run", job.RunID)
		writeError(w, http.StatusServiceUnavailable, "review queue full")
		return
	}

	logger.Debug("review queued", "pr", job.String(), "run", job.RunID)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "delivery": job.RunID})
}

// enqueue adds job without blocking. It reports false when the queue is full.
func (s *Server) enqueue(job bot.Job) bool {
	select {
	case s.jobs <- job:
		return true
	default:
		return false
	}
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"queued": len(s.jobs),
	})
}

// jobFor turns a pull request event into a job. Drafts are skipped by the
// reviewer, so ready_for_review is reviewed along with new commits.
func jobFor(e *github.PullRequestEvent, delivery string) (bot.Job, bool) {
	switch e.GetAction() {
	case "opened", "reopened", "synchronize", "ready_for_review":
	default:
		return bot.Job{}, false
	}

	number := e.GetNumber()
	if number == 0 {
		number = e.GetPullRequest().GetNumber()
	}

	job := bot.Job{
		Owner:  e.GetRepo().GetOwner().GetLogin(),
		Repo:   e.GetRepo().GetName(),
		Number: number,
		RunID:  delivery,
	}

	if job.Owner == "" || job.Repo == "" || job.Number == 0 {
		return bot.Job{}, false
	}

	return job, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
