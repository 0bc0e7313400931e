package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/RitaRen1003/medical-rag-system/internal/core"
	apperrors "github.com/RitaRen1003/medical-rag-system/pkg/errors"
)

// QuestionAnswerer answers one question against the knowledge graph.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, query string, opts core.AnswerOptions) (*core.Answer, error)
}

// Server exposes the pipeline over HTTP.
type Server struct {
	Pipeline QuestionAnswerer
	Stats    core.StatsSource
	Logger   *zap.Logger

	registry  *prometheus.Registry
	questions *prometheus.CounterVec
	latency   prometheus.Histogram
	factCount prometheus.Histogram
}

// New wires a server around the pipeline. Each server carries its own
// metrics registry so multiple instances never collide.
func New(pipeline QuestionAnswerer, stats core.StatsSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		Pipeline: pipeline,
		Stats:    stats,
		Logger:   logger,
		registry: prometheus.NewRegistry(),
	}

	s.questions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medrag_questions_total",
		Help: "Questions served, by HTTP status.",
	}, []string{"status"})
	s.latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "medrag_answer_seconds",
		Help:    "End-to-end answer latency.",
		Buckets: prometheus.DefBuckets,
	})
	s.factCount = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "medrag_answer_facts",
		Help:    "Facts retrieved per answered question.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})
	s.registry.MustRegister(s.questions, s.latency, s.factCount)

	return s
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/ask", s.Ask)
	r.GET("/stats", s.GraphStats)
	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	return r
}

// AskRequest is the /ask payload. IncludeUMLS is a pointer so an absent
// field keeps the default of annotating.
type AskRequest struct {
	Question    string `json:"question" binding:"required"`
	IncludeUMLS *bool  `json:"include_umls"`
	MaxFacts    int    `json:"max_facts"`
	TimeoutMS   int    `json:"timeout_ms"`
}

func (s *Server) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.questions.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	opts := core.DefaultAnswerOptions()
	if req.IncludeUMLS != nil {
		opts.IncludeUMLS = *req.IncludeUMLS
	}
	opts.MaxFacts = req.MaxFacts
	if req.TimeoutMS > 0 {
		opts.Timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	start := time.Now()
	answer, err := s.Pipeline.AnswerQuestion(c.Request.Context(), req.Question, opts)
	if err != nil {
		status := s.writeError(c, err)
		s.questions.WithLabelValues(strconv.Itoa(status)).Inc()
		s.Logger.Warn("question failed",
			zap.String("question", req.Question),
			zap.Int("status", status),
			zap.Error(err))
		return
	}

	s.questions.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	s.latency.Observe(time.Since(start).Seconds())
	s.factCount.Observe(float64(answer.FactCount))

	c.JSON(http.StatusOK, answer)
}

func (s *Server) GraphStats(c *gin.Context) {
	stats, err := s.Stats.Stats(c.Request.Context())
	if err != nil {
		status := s.writeError(c, err)
		s.Logger.Warn("stats failed", zap.Int("status", status), zap.Error(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps the error to its HTTP status and writes the JSON body.
func (s *Server) writeError(c *gin.Context, err error) int {
	if ae := apperrors.GetAppError(err); ae != nil {
		c.JSON(ae.HTTPStatus, gin.H{"error": ae.Message, "type": ae.Type})
		return ae.HTTPStatus
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	return http.StatusInternalServerError
}
