package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sentimentwatch/internal/chat"
	"sentimentwatch/internal/model"
	"sentimentwatch/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"
)

type fakeMetrics struct {
	bySubject map[string]*model.Metric
	err       error
}

func (f *fakeMetrics) Latest(ctx context.Context, subject string) (*model.Metric, error) {
	return f.bySubject[subject], f.err
}

type fakeRuns struct {
	run *model.Run
	err error
}

func (f *fakeRuns) LatestCompleted(ctx context.Context) (*model.Run, error) {
	return f.run, f.err
}

func TestGetMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	completed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	h := NewMetricsHandler(
		&fakeMetrics{bySubject: map[string]*model.Metric{"claude": {Subject: "claude", SentimentScore: 31, Trend: model.TrendUp}}},
		&fakeRuns{run: &model.Run{ID: "r1", CompletedAt: &completed, Status: model.RunCompleted}},
		3*time.Hour,
	)
	r := gin.New()
	r.GET("/metrics", h.GetMetrics)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var res MetricsResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 31, res.Claude.SentimentScore)
	assert.Equal(t, (*MetricResponse)(nil), res.OpenAI)
	assert.Equal(t, "r1", res.LastRun.ID)
}

func TestGetMonitor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	completed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		run     *model.Run
		now     time.Time
		status  string
		next    string
		overdue bool
	}{
		{"never run", nil, completed, monitorNeverRun, "2026-03-01T09:00:00Z", true},
		{"on schedule", &model.Run{ID: "r1", CompletedAt: &completed}, completed.Add(time.Hour), monitorActive, "2026-03-01T12:00:00Z", false},
		{"overdue", &model.Run{ID: "r1", CompletedAt: &completed}, completed.Add(4 * time.Hour), monitorActive, "2026-03-01T12:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMetricsHandler(&fakeMetrics{}, &fakeRuns{run: tt.run}, 3*time.Hour)
			h.now = func() time.Time { return tt.now }
			r := gin.New()
			r.GET("/monitor", h.GetMonitor)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/monitor", nil))

			var res MonitorResponse
			json.Unmarshal(w.Body.Bytes(), &res)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.next, res.NextRunAt)
			assert.Equal(t, tt.overdue, res.Overdue)
			assert.Equal(t, 3, res.IntervalHours)
		})
	}
}

type fakeGenerator struct {
	summary *pipeline.Summary
	err     error
	calls   int
}

func (f *fakeGenerator) Generate(ctx context.Context) (*pipeline.Summary, error) {
	f.calls++
	return f.summary, f.err
}

type memCache struct {
	values  map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string][]byte)}
}

func (m *memCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	data, ok := m.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, out)
}

func (m *memCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	m.values[key] = data
	return err
}

func (m *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

func TestGetSummary_Cached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	text := "Builders lean Claude."
	gen := &fakeGenerator{summary: &pipeline.Summary{Summary: &text, TweetCount: 4, ClaudeMentions: 3, OpenAIMentions: 2}}
	h := NewSummaryHandler(gen, newMemCache(), time.Minute)
	r := gin.New()
	r.GET("/summary", h.GetSummary)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/summary", nil))

		var res map[string]any
		json.Unmarshal(w.Body.Bytes(), &res)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, text, res["summary"])
		assert.Equal(t, float64(3), res["claudeMentions"])
	}

	assert.Equal(t, 1, gen.calls)
}

func TestGetSummary_Error(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewSummaryHandler(&fakeGenerator{err: errors.New("DB down")}, newMemCache(), time.Minute)
	r := gin.New()
	r.GET("/summary", h.GetSummary)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/summary", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, nil, res["summary"])
	assert.Equal(t, float64(0), res["tweetCount"])
}

type fakeClassifier struct {
	got []model.BiasInput
}

func (f *fakeClassifier) Classify(ctx context.Context, items []model.BiasInput) model.BiasResult {
	f.got = items
	res := model.BiasResult{Items: []model.BiasLabel{}}
	for _, it := range items {
		res.Items = append(res.Items, model.BiasLabel{ID: it.ID, Bias: model.BiasNeutral})
		res.Summary.Neutral++
	}
	return res
}

func TestPostBias(t *testing.T) {
	gin.SetMode(gin.TestMode)
	classifier := &fakeClassifier{}
	r := gin.New()
	r.POST("/bias", NewBiasHandler(classifier).PostBias)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/bias", strings.NewReader(`{"items":[{"id":"a","text":"Opus wins"}]}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []model.BiasInput{{ID: "a", Text: "Opus wins"}}, classifier.got)

	var res model.BiasResult
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 1, res.Summary.Neutral)
}

func TestPostBias_BadJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/bias", NewBiasHandler(&fakeClassifier{}).PostBias)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/bias", strings.NewReader(`{"items":`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeRunner struct {
	stats *pipeline.RunStats
	err   error
	calls int
}

func (f *fakeRunner) Run(ctx context.Context) (*pipeline.RunStats, error) {
	f.calls++
	return f.stats, f.err
}

func newCronRouter(runner Runner, cache CacheInvalidator, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/cron", NewCronHandler(runner, cache, secret).PostCron)
	return r
}

func TestPostCron_Auth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		target string
		header string
		want   int
	}{
		{"header", "s3cret", "/cron", "s3cret", http.StatusOK},
		{"query", "s3cret", "/cron?secret=s3cret", "", http.StatusOK},
		{"wrong", "s3cret", "/cron", "nope", http.StatusUnauthorized},
		{"missing", "s3cret", "/cron", "", http.StatusUnauthorized},
		{"unset secret", "", "/cron", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{stats: &pipeline.RunStats{RunID: "r1"}}
			r := newCronRouter(runner, newMemCache(), tt.secret)

			req := httptest.NewRequest("POST", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("x-cron-secret", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, 0, runner.calls)
			}
		})
	}
}

func TestPostCron_Success(t *testing.T) {
	cache := newMemCache()
	runner := &fakeRunner{stats: &pipeline.RunStats{RunID: "r1", ItemsNew: 4, ClustersCreated: 11}}
	r := newCronRouter(runner, cache, "s")

	req := httptest.NewRequest("POST", "/cron", nil)
	req.Header.Set("x-cron-secret", "s")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res map[string]any
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "r1", res["runId"])
	assert.Equal(t, float64(11), res["clustersCreated"])
	assert.Equal(t, []string{"sentimentwatch:summary"}, cache.deleted)
}

func TestPostCron_Conflict(t *testing.T) {
	r := newCronRouter(&fakeRunner{err: pipeline.ErrRunInProgress}, newMemCache(), "s")

	req := httptest.NewRequest("POST", "/cron?secret=s", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPostCron_Failure(t *testing.T) {
	cache := newMemCache()
	r := newCronRouter(&fakeRunner{err: errors.New("search exploded")}, cache, "s")

	req := httptest.NewRequest("POST", "/cron?secret=s", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "Cron run failed", res["error"])
	assert.Equal(t, "search exploded", res["details"])
	assert.Equal(t, 0, len(cache.deleted))
}

type fakeResponder struct {
	got chat.Request
}

func (f *fakeResponder) Respond(ctx context.Context, req chat.Request, emit chat.Emit) error {
	f.got = req
	if err := emit(chat.EventContent, map[string]any{"content": "hi"}); err != nil {
		return err
	}
	return emit(chat.EventDone, map[string]any{"exaUsed": false})
}

func TestPostChat_Streams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	responder := &fakeResponder{}
	r := gin.New()
	r.POST("/chat", NewChatHandler(responder).PostChat)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message":"who wins?","history":[{"role":"user","content":"hey"}]}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "who wins?", responder.got.Message)
	assert.Equal(t, 1, len(responder.got.History))

	body := w.Body.String()
	assert.Equal(t, true, strings.Contains(body, "event:content\ndata:{\"content\":\"hi\"}"))
	assert.Equal(t, true, strings.Index(body, "event:content") < strings.Index(body, "event:done"))
}

func TestPostChat_MissingMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/chat", NewChatHandler(&fakeResponder{}).PostChat)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message":"  "}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostChat_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/chat", NewChatHandler(nil).PostChat)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/chat", strings.NewReader(`{"message":"hi"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
