// Command server runs the cumulative transcription WebSocket service.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"cumulative-transcribe-service/internal/app"
	"cumulative-transcribe-service/internal/buffer"
	"cumulative-transcribe-service/internal/config"
	"cumulative-transcribe-service/internal/events"
	httpapi "cumulative-transcribe-service/internal/http"
	"cumulative-transcribe-service/internal/normalize"
	"cumulative-transcribe-service/internal/observability"
	"cumulative-transcribe-service/internal/observability/metrics"
	"cumulative-transcribe-service/internal/session"
	"cumulative-transcribe-service/internal/transcribe"
	"cumulative-transcribe-service/internal/transcribe/google"
	"cumulative-transcribe-service/internal/transcribe/mock"
	"cumulative-transcribe-service/internal/translate"
	translatemock "cumulative-transcribe-service/internal/translate/mock"
	"cumulative-transcribe-service/internal/ws"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Error().Err(err).Msg("application startup failed")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transcriber, closeTranscriber, err := buildTranscriber(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("transcriber construction failed")
		os.Exit(1)
	}
	if closeTranscriber != nil {
		defer closeTranscriber()
	}

	m := metrics.DefaultMetrics
	normalizer := normalize.New()
	translator := translate.WithRetry(buildTranslator(), cfg.Translate.RetryMax)
	sem := semaphore.NewWeighted(int64(cfg.STT.ConcurrencyLimit))

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicUpdates: cfg.Kafka.TopicUpdates,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("error closing event publisher")
		}
	}()

	bufCfg := buffer.Config{
		SampleRate:       16000,
		Channels:         1,
		SampleWidthBytes: 2,
		MaxAudioSeconds:  cfg.CumulativeBuffer.MaxAudioSeconds,
		OverlapSeconds:   cfg.CumulativeBuffer.OverlapSeconds,
		PromptMaxChars:   cfg.Prompt.MaxChars,
	}
	registry := session.NewRegistry(cfg.IdleTTL(), bufCfg)
	go registry.RunSweeper(ctx, time.Minute)

	endpoint := ws.New(cfg, registry, transcriber, normalizer, translator, sem, publisher, m)
	router := httpapi.NewRouter(application, endpoint)

	httpServer := &http.Server{
		Addr:         cfg.Service.HTTPAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // streaming connections are long-lived
		IdleTimeout:  120 * time.Second,
	}

	obsServer := observability.NewServer(cfg.Service.ObservabilityAddr)
	obsServer.Start()

	go func() {
		log.Info().Str("addr", cfg.Service.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, draining connections")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("observability server shutdown error")
	}

	application.Shutdown()
}

// buildTranscriber constructs the configured Transcriber adapter. The
// returned close func is nil for adapters that own no external connection.
func buildTranscriber(ctx context.Context, cfg *config.Config) (transcribe.Transcriber, func(), error) {
	switch cfg.STT.Provider {
	case "google":
		adapter, err := google.New(ctx, 16000)
		if err != nil {
			return nil, nil, err
		}
		return adapter, func() {
			if err := adapter.Close(); err != nil {
				log.Error().Err(err).Msg("error closing google speech client")
			}
		}, nil
	default:
		stub := mock.NewStub(nil)
		return stub, nil, nil
	}
}

// buildTranslator constructs the base Translator before the retry
// decorator wraps it. No production MT adapter ships here; the mock stub
// lets the service run end to end without one.
func buildTranslator() translate.Translator {
	return translatemock.NewStub(nil)
}
