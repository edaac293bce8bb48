package tools

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"telinsights/internal/alerting"
	"telinsights/internal/constants"
	"telinsights/internal/logger"
	"telinsights/internal/summary"
	"telinsights/internal/trends"
	"telinsights/pkg/errors"
	"telinsights/pkg/metrics"
)

const (
	ToolSummarizeNews = "summarize_news"
	ToolTopicTrends   = "topic_trends"
	ToolCheckAlerts   = "check_alerts"
	ToolRecentSummary = "recent_summary"
)

type Summarizer interface {
	Summarize(ctx context.Context, req summary.SummarizeRequest) (*summary.SummarizeResponse, error)
	GetRecentSummary(ctx context.Context, hours int, topics []string) (*summary.WindowSummary, error)
}

type TrendChecker interface {
	CheckTopicTrends(ctx context.Context, hours int) ([]trends.TopicTrend, error)
}

type AlertChecker interface {
	CheckFrequencyAlerts(ctx context.Context) ([]alerting.TriggeredAlert, error)
	ForceCheck(ctx context.Context) ([]alerting.TriggeredAlert, error)
}

type Handler struct {
	summaries Summarizer
	trends    TrendChecker
	alerts    AlertChecker
	deliverer alerting.Deliverer
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(summaries Summarizer, trendChecker TrendChecker, alerts AlertChecker, deliverer alerting.Deliverer, log logger.Logger) *Handler {
	return &Handler{
		summaries: summaries,
		trends:    trendChecker,
		alerts:    alerts,
		deliverer: deliverer,
		logger:    log,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/", h.Info)

	tools := router.Group("/tools")
	{
		tools.POST("/"+ToolSummarizeNews, h.SummarizeNews)
		tools.POST("/"+ToolTopicTrends, h.TopicTrends)
		tools.POST("/"+ToolCheckAlerts, h.CheckAlerts)
		tools.GET("/summary", h.RecentSummary)
	}
}

func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, ServiceInfo{
		Name:    constants.ServiceNameAnalysis,
		Version: constants.ServiceVersion,
		Tools:   []string{ToolSummarizeNews, ToolTopicTrends, ToolCheckAlerts},
	})
}

// SummarizeNews answers with the JSON summary, or with the Markdown digest
// when called with ?format=markdown.
func (h *Handler) SummarizeNews(c *gin.Context) {
	start := time.Now()
	var req SummarizeNewsRequest
	if !h.bind(c, ToolSummarizeNews, &req) {
		return
	}

	resp, err := h.summaries.Summarize(c.Request.Context(), summary.SummarizeRequest{
		Hours:       valueOr(req.TimeRangeHours, constants.DefaultSummaryHours),
		Topics:      req.Topics,
		Sentiment:   req.Sentiment,
		MaxMessages: valueOr(req.MaxMessages, constants.DefaultSummaryMaxMessages),
	})
	if err != nil {
		h.fail(c, ToolSummarizeNews, start, err)
		return
	}

	metrics.ObserveToolRequest(ToolSummarizeNews, "success", time.Since(start))
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(summary.FormatDigest(resp)))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) TopicTrends(c *gin.Context) {
	start := time.Now()
	var req TopicTrendsRequest
	if !h.bind(c, ToolTopicTrends, &req) {
		return
	}

	hours := valueOr(req.TimeRangeHours, constants.DefaultTrendHours)
	minCount := valueOr(req.MinCount, constants.DefaultTrendMinCount)

	ranked, err := h.trends.CheckTopicTrends(c.Request.Context(), hours)
	if err != nil {
		h.fail(c, ToolTopicTrends, start, err)
		return
	}
	filtered := trends.FilterByMinCount(ranked, minCount)

	metrics.ObserveToolRequest(ToolTopicTrends, "success", time.Since(start))
	c.JSON(http.StatusOK, TopicTrendsResponse{
		Trends:         filtered,
		TotalTopics:    len(filtered),
		TimeRangeHours: hours,
		MinCountFilter: minCount,
		GeneratedAt:    h.now().UTC(),
	})
}

// CheckAlerts runs the frequency check on demand. Triggered alerts are
// handed to the deliverer as well as returned.
func (h *Handler) CheckAlerts(c *gin.Context) {
	start := time.Now()
	var req CheckAlertsRequest
	if !h.bind(c, ToolCheckAlerts, &req) {
		return
	}

	ctx := c.Request.Context()
	check := h.alerts.CheckFrequencyAlerts
	if req.ForceCheck {
		check = h.alerts.ForceCheck
	}

	alerts, err := check(ctx)
	if err != nil {
		h.fail(c, ToolCheckAlerts, start, err)
		return
	}
	if alerts == nil {
		alerts = []alerting.TriggeredAlert{}
	}

	if len(alerts) > 0 && h.deliverer != nil {
		if err := h.deliverer.Deliver(ctx, alerts); err != nil {
			h.logger.ErrorwCtx(ctx, "Alert delivery incomplete", "error", err, "alerts", len(alerts))
		}
	}

	metrics.ObserveToolRequest(ToolCheckAlerts, "success", time.Since(start))
	c.JSON(http.StatusOK, CheckAlertsResponse{
		AlertsTriggered: len(alerts),
		Alerts:          alerts,
		ForceCheck:      req.ForceCheck,
		CheckedAt:       h.now().UTC(),
	})
}

func (h *Handler) RecentSummary(c *gin.Context) {
	start := time.Now()
	var query RecentSummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.reject(c, ToolRecentSummary, err)
		return
	}

	result, err := h.summaries.GetRecentSummary(c.Request.Context(),
		valueOr(query.Hours, constants.DefaultTrendHours),
		splitTopics(query.Topics),
	)
	if err != nil {
		h.fail(c, ToolRecentSummary, start, err)
		return
	}

	metrics.ObserveToolRequest(ToolRecentSummary, "success", time.Since(start))
	c.JSON(http.StatusOK, result)
}

// bind decodes an optional JSON body. An empty body means all defaults.
func (h *Handler) bind(c *gin.Context, tool string, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !stderrors.Is(err, io.EOF) {
		h.reject(c, tool, err)
		return false
	}
	return true
}

func (h *Handler) reject(c *gin.Context, tool string, err error) {
	metrics.ObserveToolRequest(tool, "invalid", 0)
	c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err).WithMessage(err.Error())))
}

func (h *Handler) fail(c *gin.Context, tool string, start time.Time, err error) {
	metrics.ObserveToolRequest(tool, "error", time.Since(start))
	h.logger.ErrorwCtx(c.Request.Context(), "Tool request failed", "tool", tool, "error", err)

	if errors.ToHTTPStatus(err) == http.StatusInternalServerError && c.Request.Context().Err() != nil {
		err = errors.ErrTimeout.WithCause(err)
	}
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// splitTopics accepts both repeated and comma separated topics parameters.
func splitTopics(values []string) []string {
	var out []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
