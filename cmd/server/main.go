package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/media-pipeline/internal/cleanup"
	"github.com/codebuildervaibhav/media-pipeline/internal/config"
	"github.com/codebuildervaibhav/media-pipeline/internal/dispatch"
	"github.com/codebuildervaibhav/media-pipeline/internal/handlers"
	"github.com/codebuildervaibhav/media-pipeline/internal/llm"
	"github.com/codebuildervaibhav/media-pipeline/internal/logger"
	"github.com/codebuildervaibhav/media-pipeline/internal/media"
	"github.com/codebuildervaibhav/media-pipeline/internal/pipeline"
	"github.com/codebuildervaibhav/media-pipeline/internal/progress"
	"github.com/codebuildervaibhav/media-pipeline/internal/resolver"
	"github.com/codebuildervaibhav/media-pipeline/internal/status"
	"github.com/codebuildervaibhav/media-pipeline/internal/storage"
	"github.com/codebuildervaibhav/media-pipeline/internal/transcribe"
	"github.com/codebuildervaibhav/media-pipeline/internal/tts"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Error("failed to create temp directory", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	log.Info("initializing components")

	transcriber, err := transcribe.New(transcribe.Options{
		Mode:    cfg.Whisper.Mode,
		Model:   cfg.Whisper.Model,
		BaseURL: cfg.Whisper.BaseURL,
		APIKey:  cfg.Whisper.APIKey,
	}, log)
	if err != nil {
		log.Error("failed to initialize transcriber", "error", err)
		os.Exit(1)
	}

	// Durable store is optional: if it cannot open, run in-memory only.
	var jobDB *storage.JobDB
	if cfg.Storage.Database != "" {
		jobDB, err = storage.NewJobDB(cfg.Storage.Database)
		if err != nil {
			log.Warn("durable job store unavailable, continuing in-memory only", "error", err)
			jobDB = nil
		} else {
			defer jobDB.Close()
		}
	}

	artifacts := storage.NewLocalStorage(cfg.Storage.OutputDir)

	var archiver pipeline.Archiver
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err := storage.NewDriveClient(
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
		)
		if err != nil {
			log.Warn("Google Drive archival not available", "error", err)
		} else {
			log.Info("Google Drive archival enabled")
			archiver = driveClient
		}
	} else {
		log.Info("Google Drive credentials not found, artifacts stay local")
	}

	var transformer pipeline.Transformer
	if cfg.LLM.Enabled {
		transformer = llm.NewProcessor(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, log)
	}

	var speaker pipeline.Speaker
	if cfg.TTS.BaseURL != "" || cfg.TTS.APIKey != "" {
		speaker = tts.NewSynthesizer(cfg.TTS.BaseURL, cfg.TTS.APIKey, cfg.TTS.Model, cfg.TTS.Voice, log)
	}

	store := progress.NewStore(log)
	captions := transcribe.NewCaptionClient("", log)
	downloader := media.NewDownloader(cfg.Storage.TempDir, log)
	sources := resolver.New(captions, downloader, transcriber, *cfg.Resolver.AllowAudioFallback, log)

	pipeCfg := pipeline.Config{
		Store:       store,
		Resolver:    sources,
		Transcriber: transcriber,
		Transformer: transformer,
		Speaker:     speaker,
		Artifacts:   artifacts,
		Archiver:    archiver,
		TempDir:     cfg.Storage.TempDir,
		Logger:      log,
	}

	var records dispatch.Records
	if jobDB != nil {
		pipeCfg.Recorder = jobDB
		records = jobDB
	}
	pipe := pipeline.New(pipeCfg)

	dispatcher := dispatch.New(pipe, store, records, cfg.Workers.MaxConcurrent, log)

	var durable status.Durable
	if jobDB != nil {
		durable = jobDB
	}
	reader := status.NewReader(store, durable)

	scheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
		cfg.Cleanup.ProgressRetentionHours,
		store,
		log,
	)
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: cfg.Limits.MaxFileSizeMB * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	submitHandler := handlers.NewSubmitHandler(dispatcher, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB, log)
	statusHandler := handlers.NewStatusHandler(reader, dispatcher, artifacts, jobDB, log)
	progressStream := handlers.NewProgressStream(reader, log)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	app.Post("/jobs/upload", submitHandler.Upload)
	app.Post("/jobs/documents", submitHandler.Documents)
	app.Post("/jobs/youtube", submitHandler.YouTube)
	app.Post("/jobs/text", submitHandler.Text)
	app.Post("/jobs/speech", submitHandler.Speech)

	app.Get("/jobs", statusHandler.List)
	app.Get("/jobs/:id", statusHandler.Get)
	app.Post("/jobs/:id/cancel", statusHandler.Cancel)
	app.Get("/jobs/:id/files/:name", statusHandler.Download)

	app.Get("/ws/jobs/:id", websocket.New(progressStream.Handle))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("server starting", "addr", addr, "whisper_mode", cfg.Whisper.Mode, "max_concurrent", cfg.Workers.MaxConcurrent)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("shutting down gracefully")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	dispatcher.Wait()
}
