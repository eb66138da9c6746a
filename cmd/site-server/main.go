// cmd/site-server/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"leadcapture/internal/analytics"
	"leadcapture/internal/calls"
	awsx "leadcapture/internal/common/aws"
	"leadcapture/internal/common/config"
	"leadcapture/internal/common/database"
	httpclient "leadcapture/internal/common/http"
	"leadcapture/internal/common/logger"
	"leadcapture/internal/common/observability"
	"leadcapture/internal/common/zoho"
	"leadcapture/internal/errorreport"
	"leadcapture/internal/forms"
	"leadcapture/internal/landing"
	"leadcapture/internal/leads"
	"leadcapture/internal/voice"
	"leadcapture/internal/web"
	"leadcapture/internal/webhook"
)

// retryWithBackoff attempts to execute a function with exponential backoff.
// It gives up early when ctx is done.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, i+1, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// stores holds the optional backing services; any of them may be nil.
type stores struct {
	pg    *database.PostgresClient
	redis *database.RedisClient
	es    *database.ElasticsearchClient
}

func (s *stores) ping(ctx context.Context) error {
	var errs []error
	if s.pg != nil {
		if err := s.pg.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.es != nil {
		if err := s.es.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("elasticsearch: %w", err))
		}
	}
	return stderrors.Join(errs...)
}

func (s *stores) close(log *zap.Logger) {
	if s.pg != nil {
		if err := s.pg.Close(); err != nil {
			log.Error("error closing postgres", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error("error closing redis", zap.Error(err))
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting site server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("metrics setup failed", zap.Error(err))
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.App.Name, cfg.App.Version, cfg.Tracing.Endpoint, cfg.Tracing.Enabled)
	if err != nil {
		zapLog.Fatal("tracing setup failed", zap.Error(err))
	}

	st := connectStores(ctx, cfg, zapLog)
	defer st.close(zapLog)

	// --- Leads ---
	submitter := newLeadService(ctx, cfg, st, obs, log, zapLog)

	// --- Voice ---
	voiceClient := voice.NewAPIClient(voice.ClientConfig{
		APIBaseURL:    cfg.Integrations.Voice.APIBaseURL,
		RelayBaseURL:  cfg.Integrations.Voice.RelayBaseURL,
		APIKey:        cfg.Integrations.Voice.APIKey,
		AssistantID:   cfg.Integrations.Voice.AssistantID,
		PhoneNumberID: cfg.Integrations.Voice.PhoneNumberID,
		Timeout:       config.GetDuration(cfg.Integrations.Voice.Timeout),
	}, log)
	pollInterval := config.GetDuration(cfg.Integrations.Voice.PollInterval)
	pollTimeout := config.GetDuration(cfg.Integrations.Voice.PollTimeout)

	var callStore calls.Store = calls.NewMemoryStore()
	if st.redis != nil {
		callStore = calls.NewRedisStore(st.redis.Client, calls.DefaultKey, log)
	}
	callService := calls.NewService(ctx, voiceClient, voice.NewPoller(voiceClient, pollInterval, pollTimeout, log), callStore, log)

	session := voice.Shared()
	session.SetLogger(log)
	var voiceSession web.VoiceSession
	if cfg.Integrations.Voice.AssistantID != "" {
		err := session.Initialize(voice.SessionConfig{
			APIKey:      cfg.Integrations.Voice.PublicKey,
			AssistantID: cfg.Integrations.Voice.AssistantID,
			Tools:       voice.DefaultTools(),
			Transport:   voice.NewHTTPTransport(voiceClient, pollInterval, pollTimeout, log),
		})
		if err != nil {
			zapLog.Fatal("voice session setup failed", zap.Error(err))
		}
		voiceSession = session
	} else {
		zapLog.Warn("voice assistant not configured, voice routes disabled")
	}

	// --- Analytics & error reporting ---
	tracker := newTracker(cfg, st, log, zapLog)

	var reporter *errorreport.Reporter
	if cfg.ErrorReporting.Enabled {
		reporter = errorreport.NewReporter(cfg.ErrorReporting.EndpointURL, config.GetDuration(cfg.ErrorReporting.Timeout), log)
	} else {
		reporter = errorreport.NewReporter("", 0, log)
	}
	errorreport.SetShared(reporter)

	// --- Landing pages ---
	var cache *redis.Client
	if st.redis != nil {
		cache = st.redis.Client
	}
	landingService := landing.NewService(st.pg, cache, landing.Options{
		RegistryPath: cfg.Landing.RegistryPath,
		CacheTTL:     config.GetDuration(cfg.Landing.CacheTTL),
	}, log)

	deps := web.Dependencies{
		SiteName:       cfg.App.Name,
		Forms:          formDefinitions(cfg),
		Submitter:      submitter,
		Calls:          callService,
		Landing:        landingService,
		Errors:         reporter,
		Ready:          st.ping,
		Tracer:         observability.Tracer("web"),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         log,
	}
	if voiceSession != nil {
		deps.Voice = voiceSession
	}
	if tracker != nil {
		deps.Analytics = tracker
	}

	router, err := web.NewRouter(deps)
	if err != nil {
		zapLog.Fatal("router setup failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("error shutting down HTTP server", zap.Error(err))
	}
	if session.Active() {
		if err := session.StopCall(shutdownCtx); err != nil {
			zapLog.Warn("error ending voice session", zap.Error(err))
		}
	}

	callService.Wait()
	submitter.Flush()
	if tracker != nil {
		tracker.Flush()
	}
	reporter.Flush()

	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("error flushing traces", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("error shutting down metrics", zap.Error(err))
	}

	zapLog.Info("Site server stopped gracefully")
}

func connectStores(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) *stores {
	st := &stores{}

	if cfg.Database.Postgres.Enabled {
		err := retryWithBackoff(ctx, func() error {
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			st.pg = pg
			return nil
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		zapLog.Info("PostgreSQL connected successfully")
	}

	if cfg.Database.Redis.Enabled {
		err := retryWithBackoff(ctx, func() error {
			rdb, err := database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rdb.Ping(ctx); err != nil {
				rdb.Close()
				return err
			}
			st.redis = rdb
			return nil
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
	}

	if cfg.Database.Elasticsearch.Enabled {
		err := retryWithBackoff(ctx, func() error {
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			st.es = es
			return nil
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	return st
}

func newLeadService(ctx context.Context, cfg *config.Config, st *stores, obs *observability.Observability, log logger.Logger, zapLog *zap.Logger) *leads.Service {
	deps := leads.Dependencies{
		Webhook:       webhook.NewClient(config.GetDuration(cfg.Integrations.Webhooks.Timeout), log),
		Observability: obs,
		Tracer:        observability.Tracer("leads"),
		Logger:        log,
	}
	if st.pg != nil {
		deps.Repository = leads.NewPostgresRepository(st.pg)
	}

	if z := cfg.Integrations.Zoho; z.Enabled {
		deps.CRM = zoho.NewCRMClient(z.AuthToken, z.BaseURL)
		zapLog.Info("Zoho CRM sync enabled")
	}

	aws := cfg.Integrations.AWS
	if aws.SES.Enabled {
		mailer, err := awsx.NewMailer(ctx, aws.Region, aws.SES.FromEmail)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		deps.Mailer = mailer
		zapLog.Info("SES confirmation emails enabled")
	}
	if aws.SNS.Enabled {
		sms, err := awsx.NewSMSSender(ctx, aws.Region, aws.SNS.SenderID)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		deps.SMS = sms
		zapLog.Info("SNS sales alerts enabled")
	}

	return leads.NewService(deps, leads.Options{
		WebhookURLs:      cfg.Integrations.Webhooks.URLs,
		SalesPhoneNumber: aws.SNS.SalesPhoneNumber,
	})
}

func newTracker(cfg *config.Config, st *stores, log logger.Logger, zapLog *zap.Logger) *analytics.Tracker {
	if !cfg.Analytics.Enabled {
		return nil
	}

	timeout := config.GetDuration(cfg.Analytics.Timeout)
	var sinks []analytics.Sink
	if cfg.Analytics.CollectorURL != "" {
		sinks = append(sinks, analytics.NewHTTPSink(cfg.Analytics.CollectorURL, httpclient.NewClient(timeout)))
	}
	if st.es != nil {
		sinks = append(sinks, analytics.NewElasticsearchSink(st.es, cfg.Analytics.Index))
	}

	tracker, err := analytics.NewTracker(timeout, log, sinks...)
	if err != nil {
		zapLog.Fatal("analytics setup failed", zap.Error(err))
	}
	analytics.SetShared(tracker)
	zapLog.Info("Analytics enabled", zap.Int("sinks", len(sinks)))
	return tracker
}

// formDefinitions returns the built-in forms with per-form config applied.
func formDefinitions(cfg *config.Config) map[string]forms.Definition {
	defs := make(map[string]forms.Definition)
	for _, name := range forms.Names() {
		def, _ := forms.Lookup(name)
		fc := config.GetFormConfig(cfg, name)
		if fc.SoftSuccess != nil {
			def.SoftSuccess = *fc.SoftSuccess
		}
		if fc.RedirectURL != "" {
			after := 5 * time.Second
			if def.Redirect != nil {
				after = def.Redirect.After
			}
			if fc.RedirectSeconds > 0 {
				after = time.Duration(fc.RedirectSeconds) * time.Second
			}
			def.Redirect = &forms.Redirect{URL: fc.RedirectURL, After: after}
		}
		defs[name] = def
	}
	return defs
}
