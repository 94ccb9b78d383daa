// Package api serves the watcher status over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/treasury"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// ReportSource returns the last built report, or nil. *treasury.Watcher
// implements it.
type ReportSource interface {
	Last() *treasury.Report
}

// Server exposes:
//
//	GET /healthz   liveness and the time of the last report
//	GET /report    the last report as JSON
//	GET /state     the durable state document
//	GET /metrics   prometheus metrics
type Server struct {
	reports ReportSource
	store   treasury.StateStore
	log     logrus.FieldLogger
	router  *gin.Engine
}

// New returns a Server. gatherer may be nil, /metrics then serves the
// default registry.
func New(reports ReportSource, store treasury.StateStore, gatherer prometheus.Gatherer, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{reports: reports, store: store, log: log.WithField("pkg", "api")}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET"},
		AllowHeaders:  []string{"Origin"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(s.logger())

	router.GET("/healthz", s.health)
	router.GET("/report", s.report)
	router.GET("/state", s.state)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	s.router = router
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("serving")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
			"took":   time.Since(start),
		}).Debug("http")
	}
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if r := s.reports.Last(); r != nil {
		body["updated"] = r.Summary.UpdatedAt.Unix()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) report(c *gin.Context) {
	r := s.reports.Last()
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report yet"})
		return
	}
	c.JSON(http.StatusOK, newReportView(r))
}

func (s *Server) state(c *gin.Context) {
	st, err := s.store.Load(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Warn("state unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	b, err := treasury.MarshalState(st)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}
