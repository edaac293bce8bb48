package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telinsights/internal/alerting"
	"telinsights/internal/logger"
	"telinsights/internal/summary"
	"telinsights/internal/trends"
	"telinsights/pkg/errors"
)

type fakeSummarizer struct {
	lastRequest summary.SummarizeRequest
	lastHours   int
	lastTopics  []string
	err         error
}

func (f *fakeSummarizer) Summarize(_ context.Context, req summary.SummarizeRequest) (*summary.SummarizeResponse, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &summary.SummarizeResponse{
		Summary:        "ok",
		MessageCount:   2,
		TimeRangeHours: req.Hours,
		TopTopics:      summary.TopicCounts{{Topic: "tech", Count: 2}},
		KeySummaries:   []summary.KeySummary{},
	}, nil
}

func (f *fakeSummarizer) GetRecentSummary(_ context.Context, hours int, topics []string) (*summary.WindowSummary, error) {
	f.lastHours, f.lastTopics = hours, topics
	return &summary.WindowSummary{WindowHours: hours, TopTopics: summary.TopicCounts{}}, nil
}

type fakeTrends struct {
	lastHours int
	trends    []trends.TopicTrend
}

func (f *fakeTrends) CheckTopicTrends(_ context.Context, hours int) ([]trends.TopicTrend, error) {
	f.lastHours = hours
	return f.trends, nil
}

type fakeAlerts struct {
	forced  bool
	checked bool
	alerts  []alerting.TriggeredAlert
	err     error
}

func (f *fakeAlerts) CheckFrequencyAlerts(context.Context) ([]alerting.TriggeredAlert, error) {
	f.checked = true
	return f.alerts, f.err
}

func (f *fakeAlerts) ForceCheck(context.Context) ([]alerting.TriggeredAlert, error) {
	f.forced = true
	return f.alerts, f.err
}

type fakeDeliverer struct{ delivered []alerting.TriggeredAlert }

func (f *fakeDeliverer) Deliver(_ context.Context, alerts []alerting.TriggeredAlert) error {
	f.delivered = append(f.delivered, alerts...)
	return nil
}

type fixture struct {
	router    *gin.Engine
	summaries *fakeSummarizer
	trends    *fakeTrends
	alerts    *fakeAlerts
	deliverer *fakeDeliverer
}

func newFixture() *fixture {
	gin.SetMode(gin.TestMode)
	f := &fixture{
		summaries: &fakeSummarizer{},
		trends:    &fakeTrends{},
		alerts:    &fakeAlerts{},
		deliverer: &fakeDeliverer{},
	}
	h := NewHandler(f.summaries, f.trends, f.alerts, f.deliverer, logger.NopLogger())
	h.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	f.router = gin.New()
	h.RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestInfo(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "analysis-service", body["name"])
	assert.Len(t, body["tools"], 3)
}

func TestSummarizeNews_Defaults(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/tools/summarize_news", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, summary.SummarizeRequest{Hours: 1, MaxMessages: 50}, f.summaries.lastRequest)
	body := decode(t, w)
	assert.Equal(t, map[string]interface{}{"tech": float64(2)}, body["top_topics"])
}

func TestSummarizeNews_Params(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/tools/summarize_news",
		`{"time_range_hours": 12, "topics": ["ai"], "sentiment": "negative", "max_messages": 200}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, summary.SummarizeRequest{
		Hours:       12,
		Topics:      []string{"ai"},
		Sentiment:   "negative",
		MaxMessages: 200,
	}, f.summaries.lastRequest)
}

func TestSummarizeNews_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"hours too large", `{"time_range_hours": 169}`},
		{"hours zero", `{"time_range_hours": 0}`},
		{"max messages too large", `{"max_messages": 201}`},
		{"unknown sentiment", `{"sentiment": "angry"}`},
		{"malformed", `{"time_range_hours": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			w := f.do(http.MethodPost, "/tools/summarize_news", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["error_code"])
		})
	}
}

func TestSummarizeNews_Markdown(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/tools/summarize_news?format=markdown", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.True(t, strings.HasPrefix(w.Body.String(), "📊 **News Summary (1h)**"))
	assert.Contains(t, w.Body.String(), "• Tech: 2 mentions")
}

func TestSummarizeNews_StoreUnavailable(t *testing.T) {
	f := newFixture()
	f.summaries.err = errors.ErrStoreUnavailable
	w := f.do(http.MethodPost, "/tools/summarize_news", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", decode(t, w)["error_code"])
}

func TestTopicTrends_AppliesMinCount(t *testing.T) {
	f := newFixture()
	f.trends.trends = []trends.TopicTrend{
		{Topic: "a", MessageCount: 5},
		{Topic: "b", MessageCount: 2},
		{Topic: "c", MessageCount: 1},
	}

	w := f.do(http.MethodPost, "/tools/topic_trends", `{"min_count": 2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp TopicTrendsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 24, f.trends.lastHours)
	assert.Equal(t, 2, resp.TotalTopics)
	assert.Equal(t, 2, resp.MinCountFilter)
	assert.Equal(t, 24, resp.TimeRangeHours)
	assert.Equal(t, "a", resp.Trends[0].Topic)
}

func TestTopicTrends_EmptyListIsArray(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/tools/topic_trends", `{"time_range_hours": 3, "min_count": 10}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trends":[]`)
}

func TestTopicTrends_RejectsZeroMinCount(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/tools/topic_trends", `{"min_count": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckAlerts(t *testing.T) {
	f := newFixture()
	f.alerts.alerts = []alerting.TriggeredAlert{{AlertID: "freq_1_1", ConfigName: "Tech"}}

	w := f.do(http.MethodPost, "/tools/check_alerts", `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckAlertsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, f.alerts.checked)
	assert.False(t, f.alerts.forced)
	assert.Equal(t, 1, resp.AlertsTriggered)
	assert.False(t, resp.ForceCheck)
	assert.Len(t, f.deliverer.delivered, 1)
}

func TestCheckAlerts_Force(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodPost, "/tools/check_alerts", `{"force_check": true}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, f.alerts.forced)
	assert.Contains(t, w.Body.String(), `"alerts":[]`)
	assert.Contains(t, w.Body.String(), `"force_check":true`)
	assert.Empty(t, f.deliverer.delivered)
}

func TestCheckAlerts_InProgress(t *testing.T) {
	f := newFixture()
	f.alerts.err = errors.ErrCheckInProgress
	w := f.do(http.MethodPost, "/tools/check_alerts", `{"force_check": true}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRecentSummary(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/tools/summary?hours=6&topics=ai,%20tech&topics=crypto", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 6, f.summaries.lastHours)
	assert.Equal(t, []string{"ai", "tech", "crypto"}, f.summaries.lastTopics)
	assert.Contains(t, w.Body.String(), `"top_topics":{}`)
}

func TestRecentSummary_InvalidHours(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/tools/summary?hours=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummarizeNews_CancelledRequestIsTimeout(t *testing.T) {
	f := newFixture()
	f.summaries.err = context.DeadlineExceeded

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/tools/summarize_news", strings.NewReader(`{}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "TIMEOUT")
}
