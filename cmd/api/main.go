package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixshift/gateway/billing"
	billingredis "github.com/pixshift/gateway/billing/redis"
	"github.com/pixshift/gateway/billing/signature"
	"github.com/pixshift/gateway/config"
	"github.com/pixshift/gateway/gateway"
	"github.com/pixshift/gateway/internal/http/chi"
	"github.com/pixshift/gateway/metrics"
	"github.com/pixshift/gateway/policies"
	"github.com/pixshift/gateway/security/filescan"
	"github.com/pixshift/gateway/security/patterns"
	"github.com/pixshift/gateway/security/ratelimit"
	ratelimitredis "github.com/pixshift/gateway/security/ratelimit/redis"
	"github.com/pixshift/gateway/security/validation"
	usageredis "github.com/pixshift/gateway/usage/redis"
)

const TIMEOUT = 30 * time.Second

// defaultQuota applies to users billing has not assigned a plan yet.
const defaultQuota = 50

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	secret, err := signature.ParseSecret(cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("invalid webhook secret: %w", err)
	}

	loader := policies.NewLoader()
	if err := loader.Load(cfg.PoliciesFile); err != nil {
		return err
	}

	client, err := billingredis.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer client.Close()

	lib := patterns.Default()
	guard := gateway.New(
		ratelimitredis.NewLimiter(client, loader.Limits(), ratelimit.Limit{Requests: 60, Window: time.Minute}),
		validation.New(lib, log),
		filescan.New(lib, log),
		gateway.NewDetector(lib),
		log,
	)

	quota := usageredis.NewQuota(client, defaultQuota)
	handlers := billing.NewHandlers(
		billingredis.NewAccountStore(client),
		billingredis.NewPlanStore(client),
		billingredis.NewSubscriptionStore(client),
		billingredis.NewUsageStore(client),
		quota,
		log,
	)
	processor := billing.NewProcessor(
		billingredis.NewEventStore(client),
		handlers,
		secret,
		cfg.OperatorToken,
		log,
		billing.WithTimeout(time.Duration(cfg.HandlerTimeoutSeconds)*time.Second),
	)

	exporter, err := metrics.NewOTelExporter(metrics.NewRedisCollector(client))
	if err != nil {
		return err
	}
	defer exporter.Shutdown(context.Background())

	r := chi.Handlers(ctx, chi.Deps{
		Guard:     guard,
		Policies:  loader,
		Quota:     quota,
		Recorder:  usageredis.NewRecorder(client),
		Processor: processor,
		Metrics:   exporter,
		Log:       log,
	})

	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	log.Info("listening", "port", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return <-errShutdown
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	default:
		errShutdown <- fmt.Errorf("forcing closing the server")
	}
}
