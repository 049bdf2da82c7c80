package main

import (
	"context"
	"crypto/rand"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nephrolytics-ai/study-notes/pkg/config"
	"github.com/Nephrolytics-ai/study-notes/pkg/llms"
	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/pipeline"
	"github.com/Nephrolytics-ai/study-notes/pkg/review"
	"github.com/Nephrolytics-ai/study-notes/pkg/server"
	"github.com/gorilla/sessions"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file (defaults to $STUDY_CONFIG)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath); err != nil {
		logging.NewLogger(ctx).Errorf("error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logging.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	log := logging.NewLogger(ctx)

	transcriber, err := llms.NewTranscriber(ctx, cfg)
	if err != nil {
		return err
	}
	generator, err := llms.NewTextGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	log.Infof(
		"providers transcription=%s generation=%s",
		cfg.Transcription.Provider,
		cfg.Generation.Provider,
	)

	orchestrator := pipeline.New(
		transcriber,
		generator,
		pipeline.WithTempDir(cfg.Pipeline.UploadDir),
		pipeline.WithTimeout(cfg.PipelineTimeout()),
		pipeline.WithConcurrentGeneration(cfg.Pipeline.ConcurrentGeneration),
		pipeline.WithStateObserver(func(ctx context.Context, from pipeline.State, to pipeline.State) {
			if to.Terminal() {
				logging.NewLogger(ctx).Infof("pipeline finished state=%s previous=%s", to, from)
			}
		}),
	)

	cookies := sessions.NewCookieStore(sessionKey(cfg.HTTP.SessionKey))
	cookies.Options.HttpOnly = true
	cookies.Options.MaxAge = int(cfg.SessionTTL().Seconds())

	reviewHandler, err := review.NewHandler(
		orchestrator,
		review.NewStore(cfg.SessionTTL()),
		cookies,
		review.WithMaxUploadBytes(cfg.MaxUploadBytes()),
	)
	if err != nil {
		return err
	}

	router := server.NewRouter(orchestrator, server.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Review:         reviewHandler,
	})
	return server.Run(ctx, cfg.Addr(), router)
}

// sessionKey falls back to a random key, which invalidates review cookies on restart.
func sessionKey(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return key
}
