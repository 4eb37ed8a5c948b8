// Package server exposes the species corpus over HTTP and gRPC
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/nainya/redlist/internal/logger"
	"github.com/nainya/redlist/internal/metrics"
	"github.com/nainya/redlist/pkg/document"
	"github.com/nainya/redlist/pkg/query"
)

// DefaultChatTimeout bounds how long the chat proxy waits for response
// headers from the upstream.
const DefaultChatTimeout = 60 * time.Second

// Options configures a Server.
type Options struct {
	Corpus       *document.Corpus
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
	ChatUpstream string        // Base URL of the question-answering service
	ChatTimeout  time.Duration // Defaults to DefaultChatTimeout
	ChatRate     float64       // Chat requests per second, 0 for unlimited
	ChatBurst    int
	AdminReload  bool          // Expose POST /admin/reload
}

// Server holds the shared state behind both transports.
type Server struct {
	corpus  *document.Corpus
	engine  *query.Engine
	metrics *metrics.Metrics
	log     *logger.Logger
	chat    http.Handler

	chatLimiter *rate.Limiter

	adminReload bool
	startTime   time.Time
}

// New creates a server over the given corpus.
func New(opts Options) (*Server, error) {
	if opts.Corpus == nil {
		return nil, errors.New("corpus is required")
	}
	if opts.Metrics == nil {
		return nil, errors.New("metrics are required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	timeout := opts.ChatTimeout
	if timeout <= 0 {
		timeout = DefaultChatTimeout
	}

	s := &Server{
		corpus:      opts.Corpus,
		engine:      query.NewEngine(opts.Corpus, query.WithSearchObserver(opts.Metrics)),
		metrics:     opts.Metrics,
		log:         log,
		chatLimiter: newLimiter(opts.ChatRate, opts.ChatBurst),
		adminReload: opts.AdminReload,
		startTime:   time.Now(),
	}

	chat, err := newChatProxy(opts.ChatUpstream, timeout, log.HTTPLogger(), opts.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat proxy: %w", err)
	}
	s.chat = chat

	return s, nil
}

// Engine returns the query engine.
func (s *Server) Engine() *query.Engine {
	return s.engine
}

// Corpus returns the underlying corpus.
func (s *Server) Corpus() *document.Corpus {
	return s.corpus
}

// Warm loads the corpus so the first request does not pay for it.
func (s *Server) Warm(ctx context.Context) (int, error) {
	return s.engine.Count(ctx)
}

// Uptime returns how long the server has existed.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}
