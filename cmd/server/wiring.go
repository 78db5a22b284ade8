package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	authservice "warden/internal/auth/service"
	sessionstore "warden/internal/auth/store/session"
	userstore "warden/internal/auth/store/user"
	"warden/internal/auth/workers/cleanup"
	"warden/internal/notify"
	"warden/internal/platform/config"
	"warden/internal/platform/database"
	"warden/internal/platform/health"
	"warden/internal/platform/kafka"
	"warden/internal/platform/kafka/producer"
	"warden/internal/platform/metrics"
	"warden/internal/platform/redis"
	tenantservice "warden/internal/tenant/service"
	tenantstore "warden/internal/tenant/store/tenant"
	"warden/internal/tenant/store/tenantuser"
	"warden/migrations"
	"warden/pkg/platform/audit"
	auditmetrics "warden/pkg/platform/audit/metrics"
	"warden/pkg/platform/audit/publisher"
	auditkafka "warden/pkg/platform/audit/store/kafka"
	auditmemory "warden/pkg/platform/audit/store/memory"
	auditpostgres "warden/pkg/platform/audit/store/postgres"
	"warden/pkg/platform/circuit"
)

const (
	auditBufferSize      = 1024
	sessionSweepInterval = 5 * time.Minute
)

// infra holds the optional external connections. Nil fields are not configured.
type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
	health   *health.Handler
	log      *slog.Logger
}

func openInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{health: health.New(cfg.Environment), log: log}

	if cfg.DatabaseURL != "" {
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.DatabaseURL
		pool, err := database.New(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		in.db = pool
		applied, err := pool.Migrate(ctx, migrations.FS)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("database ready", "migrations_applied", applied)
		in.health.RegisterCheck("database", pool.Health)
		prometheus.MustRegister(pool.Collector())
	}

	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		in.redis = client
		in.health.RegisterCheck("redis", client.Health)
		prometheus.MustRegister(client.Collector())
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(kafka.FromConfig(cfg.Kafka), log)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("open kafka producer: %w", err)
		}
		in.producer = p
		in.health.RegisterCheck("kafka", p.Check)
	}
	return in, nil
}

func (in *infra) Close() {
	if in.producer != nil {
		if err := in.producer.Close(); err != nil {
			in.log.Warn("close kafka producer", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.log.Warn("close redis", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			in.log.Warn("close database", "error", err)
		}
	}
}

type stores struct {
	users    authservice.UserStore
	sessions authservice.SessionStore
	tenants  tenantservice.TenantStore
	members  tenantservice.TenantUserStore

	// expired sessions are swept from stores without native key expiry
	sweepable cleanup.SessionStore
}

// buildStores picks Postgres when a database is configured and memory
// otherwise. Sessions follow SESSION_BACKEND.
func buildStores(cfg config.Server, in *infra) stores {
	var st stores
	if in.db != nil {
		st.users = userstore.NewPostgres(in.db.DB())
		st.tenants = tenantstore.NewPostgres(in.db.DB())
		st.members = tenantuser.NewPostgres(in.db.DB())
	} else {
		st.users = userstore.New()
		st.tenants = tenantstore.NewInMemory()
		st.members = tenantuser.NewInMemory()
	}

	switch cfg.SessionBackend {
	case config.BackendPostgres:
		pg := sessionstore.NewPostgres(in.db.DB())
		st.sessions, st.sweepable = pg, pg
	case config.BackendRedis:
		st.sessions = sessionstore.NewRedis(in.redis.Client)
	default:
		mem := sessionstore.New()
		st.sessions, st.sweepable = mem, mem
	}
	return st
}

// buildAudit persists to Postgres or memory, fronted by Kafka when brokers are set.
func buildAudit(cfg config.Server, in *infra, log *slog.Logger) *publisher.Publisher {
	var store audit.Store
	if in.db != nil {
		store = auditpostgres.New(in.db.DB())
	} else {
		store = auditmemory.NewInMemoryStore()
	}
	if in.producer != nil {
		store = auditkafka.New(in.producer, cfg.Kafka.AuditTopic, store)
	}
	return publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithPublisherLogger(log),
		publisher.WithMetrics(auditmetrics.New()),
	)
}

// buildDispatcher relays through the webhook when one is configured; otherwise
// deliveries are logged, with bodies outside production.
func buildDispatcher(cfg config.Server, m *metrics.Metrics, log *slog.Logger) *notify.Dispatcher {
	opts := []notify.Option{notify.WithLogger(log), notify.WithMetrics(m)}
	for _, ch := range []notify.Channel{notify.ChannelEmail, notify.ChannelSMS} {
		var sender notify.Sender
		if cfg.NotifyWebhookURL != "" {
			sender = notify.NewWebhookSender(cfg.NotifyWebhookURL, ch,
				notify.WithBreaker(circuit.New("notify_webhook_"+string(ch),
					circuit.WithFailureThreshold(5),
					circuit.WithCooldown(30*time.Second),
					circuit.OnStateChange(func(name string, from, to circuit.State) {
						log.Warn("circuit breaker state changed", "circuit", name, "from", from.String(), "to", to.String())
					}),
				)),
				notify.WithWebhookLogger(log),
			)
		} else {
			sender = notify.LogSender{Channel: ch, Logger: log, IncludeBody: !cfg.IsProduction()}
		}
		opts = append(opts, notify.WithSender(ch, sender))
	}
	return notify.NewDispatcher(opts...)
}

// startSweeper removes long-expired sessions in the background until ctx ends.
func startSweeper(ctx context.Context, st stores, m *metrics.Metrics, log *slog.Logger) error {
	if st.sweepable == nil {
		return nil
	}
	sweeper, err := cleanup.New(st.sweepable, cleanup.Config{
		Interval: sessionSweepInterval,
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	go func() {
		_ = sweeper.Run(ctx)
	}()
	return nil
}
