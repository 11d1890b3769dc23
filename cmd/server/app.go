package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	"mintgate/internal/allocation"
	"mintgate/internal/allocation/handler"
	jwttoken "mintgate/internal/jwt_token"
	"mintgate/internal/ledger"
	"mintgate/internal/platform/config"
	platformkafka "mintgate/internal/platform/kafka"
	"mintgate/internal/platform/metrics"
	"mintgate/internal/ratelimit"
	platformpostgres "mintgate/internal/platform/postgres"
	platformredis "mintgate/internal/platform/redis"
	id "mintgate/pkg/domain"
	"mintgate/pkg/platform/audit"
	"mintgate/pkg/platform/audit/outbox"
	"mintgate/pkg/platform/audit/publisher"
	kafkastore "mintgate/pkg/platform/audit/store/kafka"
	"mintgate/pkg/platform/audit/store/memory"
	pgstore "mintgate/pkg/platform/audit/store/postgres"
	"mintgate/pkg/platform/middleware/admin"
	"mintgate/pkg/platform/middleware/auth"
	"mintgate/pkg/platform/middleware/metadata"
	"mintgate/pkg/platform/middleware/request"
	"mintgate/pkg/platform/middleware/requesttime"
)

const (
	auditBreakerThreshold = 5
	auditBreakerCooldown  = 30 * time.Second

	ledgerReleaseTimeout = 5 * time.Second
)

// guardedLedger is a ledger whose transfers consult the engine's pause flag.
type guardedLedger interface {
	allocation.Ledger
	allocation.HolderCounter
	SetPauseGuard(g ledger.PauseGuard)
}

// app holds everything runServer starts and stops.
type app struct {
	engine    *allocation.Engine
	publisher *publisher.Publisher
	relay     *outbox.Relay
	router    http.Handler

	closers []func() error
	log     *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{log: log}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	owner, err := id.ParsePrincipal(cfg.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
	}

	store, err := a.auditStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.publisher = publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
		publisher.WithCircuitBreaker(publisher.NewCircuitBreaker(auditBreakerThreshold, auditBreakerCooldown)),
	)

	var l guardedLedger
	switch cfg.Ledger.Backend {
	case config.BackendRedis:
		var opts []ledger.RedisLedgerOption
		if cfg.Ledger.KeyPrefix != "" {
			opts = append(opts, ledger.WithKeyPrefix(cfg.Ledger.KeyPrefix))
		}
		rl := ledger.NewRedisLedger(redisClient.Client, opts...)
		release, err := rl.Claim(ctx)
		if err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), ledgerReleaseTimeout)
			defer cancel()
			return release(ctx)
		})
		l = rl
	default:
		l = ledger.NewInMemoryLedger()
	}
	// Engine state is not persisted; starting over existing allocations
	// would reset the counters and let the total cap be exceeded.
	if err := allocation.RequireEmptyLedger(ctx, l); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	engineOpts := []allocation.Option{
		allocation.WithLogger(log),
		allocation.WithAuditPublisher(a.publisher),
		allocation.WithMetrics(metrics.New(reg)),
		allocation.WithQuotas(cfg.InitialQuotas.Total, cfg.InitialQuotas.Whitelist, cfg.InitialQuotas.Admin),
	}
	if cfg.StrictQuotas {
		engineOpts = append(engineOpts, allocation.WithStrictQuotas())
	}
	a.engine, err = allocation.New(owner, l, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	l.SetPauseGuard(a.engine)

	var revocations auth.TokenRevocationChecker
	if cfg.JWT.Revocation {
		revocations = jwttoken.NewRevocationList(redisClient.Client)
	}
	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)

	var limits ratelimit.Store = ratelimit.NewInMemoryStore()
	if redisClient != nil {
		limits = ratelimit.NewRedisStore(redisClient.Client)
	}

	a.router = newRouter(routerDeps{
		handler:        handler.New(a.engine, log),
		validator:      jwttoken.NewJWTServiceAdapter(jwtService),
		revocations:    revocations,
		rateLimit:      ratelimit.Middleware(limits, cfg.RateLimit.Requests, cfg.RateLimit.Window, log),
		metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		adminTokenHash: cfg.AdminTokenHash,
		log:            log,
	})
	ready = true
	return a, nil
}

// auditStore builds the configured audit backend and, for the postgres
// outbox with brokers configured, the relay that forwards it to Kafka.
func (a *app) auditStore(ctx context.Context, cfg config.Config) (audit.Store, error) {
	switch cfg.Audit.Backend {
	case config.BackendPostgres:
		db, err := platformpostgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		store := pgstore.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure audit schema: %w", err)
		}
		if len(cfg.Kafka.Brokers) > 0 {
			client, err := a.kafkaClient(ctx, cfg.Kafka)
			if err != nil {
				return nil, err
			}
			a.relay = outbox.NewRelay(store, client, cfg.Kafka.Topic,
				outbox.WithInterval(cfg.Audit.OutboxInterval),
				outbox.WithBatchSize(cfg.Audit.OutboxBatch),
				outbox.WithLogger(a.log),
			)
		}
		return store, nil

	case config.BackendKafka:
		client, err := a.kafkaClient(ctx, cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return kafkastore.New(client, cfg.Kafka.Topic), nil

	default:
		return memory.NewInMemoryStore(), nil
	}
}

func (a *app) kafkaClient(ctx context.Context, cfg config.KafkaConfig) (*kgo.Client, error) {
	client, err := platformkafka.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		client.Close()
		return nil
	})
	if err := platformkafka.EnsureTopic(ctx, client, cfg); err != nil {
		return nil, err
	}
	return client, nil
}

// Close drains the audit publisher before releasing the connections it may
// still write to.
func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Error("failed to release resources", "error", err)
	}
	a.closers = nil
}

type routerDeps struct {
	handler        *handler.Handler
	validator      auth.JWTValidator
	revocations    auth.TokenRevocationChecker
	rateLimit      func(http.Handler) http.Handler
	metrics        http.Handler
	adminTokenHash string
	log            *slog.Logger
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.log))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(admin.RequireAdminToken(d.adminTokenHash, d.log)).Handle("/metrics", d.metrics)

	d.handler.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.validator, d.revocations, d.log))
		d.handler.RegisterKillSwitch(r)
		r.Group(func(r chi.Router) {
			r.Use(d.rateLimit)
			d.handler.RegisterProtected(r)
		})
	})
	return r
}

