// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"leadcapture/internal/analytics"
	"leadcapture/internal/calls"
	"leadcapture/internal/common/config"
	"leadcapture/internal/common/database"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/observability"
	"leadcapture/internal/errorreport"
	"leadcapture/internal/forms"
	"leadcapture/internal/landing"
	"leadcapture/internal/leads"
	"leadcapture/internal/voice"
	"leadcapture/internal/web"
	"leadcapture/internal/webhook"
)

const migrationPath = "../../migrations/001_init.sql"

var zapLog *zap.Logger

// TestMain only runs the suite when E2E=1; it needs PostgreSQL, Redis and
// Elasticsearch on localhost.
func TestMain(m *testing.M) {
	if os.Getenv("E2E") != "1" {
		os.Exit(0)
	}
	gin.SetMode(gin.TestMode)
	zapLog, _ = zap.NewProduction()
	code := m.Run()
	zapLog.Sync()
	os.Exit(code)
}

// capturingWebhook records every body posted to it.
type capturingWebhook struct {
	mu     sync.Mutex
	bodies []map[string]interface{}
}

func (c *capturingWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	c.mu.Lock()
	c.bodies = append(c.bodies, body)
	c.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (c *capturingWebhook) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

type site struct {
	router *gin.Engine
	pg     *database.PostgresClient
	redis  *database.RedisClient
	es     *database.ElasticsearchClient
	hook   *capturingWebhook
	leads  *leads.Service
	track  *analytics.Tracker
}

func TestFullE2E(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	t.Log("🚀 Starting E2E test with real services...")

	s := newSite(t, cfg)
	applyMigrations(t, s.pg)

	t.Run("health", func(t *testing.T) { testReady(t, s) })
	t.Run("contact submission", func(t *testing.T) { testContactSubmission(t, s) })
	t.Run("landing page", func(t *testing.T) { testLandingPage(t, s) })
	t.Run("analytics", func(t *testing.T) { testAnalytics(t, s) })
	t.Run("recent calls", func(t *testing.T) { testRecentCalls(t, s) })

	t.Log("✅ E2E workflow successful")
}

// ==========================
// Setup
// ==========================

func newSite(t *testing.T, cfg *config.Config) *site {
	ctx := context.Background()

	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.URL = "http://localhost:9200"
	cfg.Database.Elasticsearch.Addresses = nil

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "❌ PostgreSQL connection failed")
	require.NoError(t, pg.Ping(ctx), "❌ PostgreSQL ping failed")
	t.Cleanup(func() { pg.Close() })
	t.Log("✅ PostgreSQL connected")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "❌ Redis client creation failed")
	require.NoError(t, rdb.Ping(ctx), "❌ Redis ping failed")
	t.Cleanup(func() { rdb.Close() })
	t.Log("✅ Redis connected")

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err, "❌ Elasticsearch client creation failed")
	require.NoError(t, es.Ping(ctx), "❌ Elasticsearch ping failed")
	t.Log("✅ Elasticsearch connected")

	log := logger.NewZapAdapter(zapLog)

	hook := &capturingWebhook{}
	hookSrv := httptest.NewServer(hook)
	t.Cleanup(hookSrv.Close)

	leadService := leads.NewService(leads.Dependencies{
		Repository: leads.NewPostgresRepository(pg),
		Webhook:    webhook.NewClient(5*time.Second, log),
		Tracer:     observability.Tracer("e2e"),
		Logger:     log,
	}, leads.Options{
		WebhookURLs: map[string]string{
			forms.Contact: hookSrv.URL + "/contact",
			forms.Demo:    hookSrv.URL + "/demo",
		},
	})

	tracker, err := analytics.NewTracker(5*time.Second, log,
		analytics.NewElasticsearchSink(es, "site-events-e2e"))
	require.NoError(t, err)

	// No real voice backend: the call service only reads from the store here.
	voiceClient := voice.NewAPIClient(voice.ClientConfig{APIBaseURL: hookSrv.URL}, log)
	store := calls.NewRedisStore(rdb.Client, "recent_calls_e2e", log)
	callService := calls.NewService(ctx, voiceClient, voice.NewPoller(voiceClient, time.Second, time.Minute, log), store, log)

	landingService := landing.NewService(pg, rdb.Client, landing.Options{
		RegistryPath: "../../configs/landing-pages.json",
		CacheTTL:     time.Minute,
	}, log)

	defs := map[string]forms.Definition{}
	for _, name := range forms.Names() {
		defs[name], _ = forms.Lookup(name)
	}

	router, err := web.NewRouter(web.Dependencies{
		Forms:     defs,
		Submitter: leadService,
		Calls:     callService,
		Landing:   landingService,
		Analytics: tracker,
		Errors:    errorreport.NewReporter("", 0, log),
		Ready: func(ctx context.Context) error {
			if err := pg.Ping(ctx); err != nil {
				return err
			}
			return rdb.Ping(ctx)
		},
		Logger: log,
	})
	require.NoError(t, err)

	return &site{
		router: router,
		pg:     pg,
		redis:  rdb,
		es:     es,
		hook:   hook,
		leads:  leadService,
		track:  tracker,
	}
}

func applyMigrations(t *testing.T, pg *database.PostgresClient) {
	t.Log("🔧 Applying migrations...")
	ddl, err := os.ReadFile(migrationPath)
	require.NoError(t, err)
	_, err = pg.Exec(context.Background(), string(ddl))
	require.NoError(t, err)
}

func (s *site) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// ==========================
// Flows
// ==========================

func testReady(t *testing.T, s *site) {
	w := s.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func testContactSubmission(t *testing.T, s *site) {
	w := s.do(http.MethodPost, "/api/forms/contact/submit", map[string]interface{}{
		"values": map[string]string{
			"name":    "Jane E2E",
			"email":   "jane.e2e@example.com",
			"topic":   "automation",
			"message": "Testing the full flow.",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["delivered"])
	id, _ := body["submissionId"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, s.hook.count())

	var delivered bool
	var status int
	err := s.pg.QueryRow(context.Background(),
		`SELECT delivered, webhook_status FROM lead_submissions WHERE id = $1`, id,
	).Scan(&delivered, &status)
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, http.StatusOK, status)

	s.leads.Flush()
	t.Log("✅ Lead stored and delivered")
}

func testLandingPage(t *testing.T, s *site) {
	ctx := context.Background()
	_, err := s.pg.Exec(ctx, `INSERT INTO landing_pages (slug, company_name, headline, active)
		VALUES ('e2e-widgets', 'E2E Widgets', 'Widgets that answer the phone', true)
		ON CONFLICT (slug) DO UPDATE SET headline = EXCLUDED.headline, active = true`)
	require.NoError(t, err)
	require.NoError(t, s.redis.Client.Del(ctx, "landing:e2e-widgets").Err())

	w := s.do(http.MethodGet, "/e2e-widgets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Widgets that answer the phone")

	cached, err := s.redis.Client.Exists(ctx, "landing:e2e-widgets").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached)

	w = s.do(http.MethodGet, "/acme-dental", nil)
	assert.Equal(t, http.StatusOK, w.Code, "registry fallback")

	w = s.do(http.MethodGet, "/no-such-company-e2e", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	t.Log("✅ Landing pages served")
}

func testAnalytics(t *testing.T, s *site) {
	w := s.do(http.MethodPost, "/api/analytics/events", map[string]interface{}{
		"name":     "cta_click",
		"category": "engagement",
		"page":     "/demo",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	s.track.Flush()
	t.Log("✅ Analytics event indexed")
}

func testRecentCalls(t *testing.T, s *site) {
	ctx := context.Background()
	store := calls.NewRedisStore(s.redis.Client, "recent_calls_e2e", nil)
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Add(ctx, calls.Record{
		ID:          "call-e2e",
		PhoneNumber: "+15551234567",
		Status:      "queued",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}))

	w := s.do(http.MethodGet, "/api/calls/call-e2e", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "+15551234567")
	t.Log("✅ Recent calls read from Redis")
}
