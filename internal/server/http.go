// HTTP API served with gin
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/nainya/redlist/pkg/jsonx"
	"github.com/nainya/redlist/pkg/query"
)

// DefaultRelatedLimit is the related-species count when none is requested.
const DefaultRelatedLimit = 2

// Router builds the public HTTP API.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), requestID(), s.requestMetrics())

	api := r.Group("/api")
	{
		api.GET("/docs", s.handleListDocs)
		api.GET("/docs/:slug", s.handleGetDoc)
		api.GET("/docs/:slug/related", s.handleRelatedDocs)
		chat := []gin.HandlerFunc{rateLimit(s.chatLimiter), gin.WrapH(s.chat)}
		api.Any("/chat", chat...)
		api.Any("/chat/*path", chat...)
	}

	r.GET("/healthz", s.handleHealthz)

	if s.adminReload {
		r.POST("/admin/reload", s.handleReload)
	}

	r.NoRoute(func(c *gin.Context) {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}

// Handler wraps the router with OpenTelemetry server instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Router(), "redlist.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method
		}),
	)
}

// requestMetrics records every request once its handler chain finishes.
func (s *Server) requestMetrics() gin.HandlerFunc {
	log := s.log.HTTPLogger()
	return func(c *gin.Context) {
		start := time.Now()
		s.metrics.HTTPRequestsInFlight.Inc()
		defer s.metrics.HTTPRequestsInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		duration := time.Since(start)

		trace.SpanFromContext(c.Request.Context()).SetName(c.Request.Method + " " + route)

		s.metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(code), duration)
		log.LogHTTPRequest(c.Request.Method, route, RequestIDFromContext(c.Request.Context()), code, duration)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	log := s.log.HTTPLogger()
	return gin.CustomRecovery(func(c *gin.Context, rec interface{}) {
		log.Error("Panic in HTTP handler").
			Interface("panic", rec).
			Str("path", c.Request.URL.Path).
			Str("request_id", RequestIDFromContext(c.Request.Context())).
			Send()
		c.Abort()
		writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}

func (s *Server) handleListDocs(c *gin.Context) {
	opts := query.SearchOptions{
		Query:    c.Query("q"),
		Page:     query.ParsePage(c.Query("page")),
		PageSize: query.ParsePageSize(c.Query("pageSize")),
		Statuses: query.ParseList(c.Query("status")),
		HasImage: query.ParseTriState(c.Query("hasImage")),
		Sources:  query.ParseList(c.Query("source")),
		Sort:     query.ParseSortKey(c.Query("sort")),
	}

	result, err := s.engine.Search(c.Request.Context(), opts)
	if err != nil {
		s.internalError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, query.NewListResponse(result))
}

func (s *Server) handleGetDoc(c *gin.Context) {
	doc, err := s.engine.GetBySlug(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, query.ErrNotFound) {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, query.ToDetail(doc))
}

func (s *Server) handleRelatedDocs(c *gin.Context) {
	limit := DefaultRelatedLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			limit = min(n, query.MaxPageSize)
		}
	}

	docs, err := s.engine.Related(c.Request.Context(), c.Param("slug"), limit)
	if errors.Is(err, query.ErrNotFound) {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}

	writeJSON(c, http.StatusOK, gin.H{"items": query.ToListItems(docs)})
}

func (s *Server) handleHealthz(c *gin.Context) {
	n, err := s.engine.Count(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok", "documents": n})
}

func (s *Server) handleReload(c *gin.Context) {
	ctx := c.Request.Context()
	if err := s.corpus.Reload(ctx); err != nil {
		s.internalError(c, err)
		return
	}

	n, err := s.engine.Count(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}

	s.log.CorpusLogger().Info("Corpus reloaded on request").Int("documents", n).Send()
	writeJSON(c, http.StatusOK, gin.H{"documents": n})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.log.HTTPLogger().Error("Request failed").
		Str("path", c.Request.URL.Path).
		Str("request_id", RequestIDFromContext(c.Request.Context())).
		Err(err).
		Send()
	writeJSON(c, http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// writeJSON encodes with jsonx rather than gin's default codec.
func writeJSON(c *gin.Context, code int, v interface{}) {
	data, err := jsonx.Marshal(v)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(code, "application/json; charset=utf-8", data)
}
