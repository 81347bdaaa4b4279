package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scribestack/transcription-service/internal/config"
	"github.com/scribestack/transcription-service/internal/db"
	"github.com/scribestack/transcription-service/internal/engine"
	"github.com/scribestack/transcription-service/internal/httpapi"
	"github.com/scribestack/transcription-service/internal/httpapi/handlers"
	"github.com/scribestack/transcription-service/internal/queue"
	"github.com/scribestack/transcription-service/internal/store/redisstore"
	"github.com/scribestack/transcription-service/internal/transcription"
	"github.com/scribestack/transcription-service/internal/upload"
)

func main() {
	cfg := config.Load()

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	store := transcription.NewStore(gdb)

	var eng engine.Engine
	if cfg.EngineBaseURL == "mock" {
		log.Printf("using mock transcription engine")
		eng = engine.NewMockEngine()
	} else {
		eng = engine.NewHTTPEngine(cfg.EngineBaseURL)
	}
	adapter := engine.NewAdapter(eng, cfg.DiarizationTimeout, cfg.MaxAudioDuration)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// With RABBIT_URL set, jobs go through the broker to the worker binary;
	// otherwise an in-process pool executes them.
	var dispatcher transcription.Dispatcher
	var pool *queue.Pool
	if cfg.RabbitURL != "" {
		pub, err := queue.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatalf("rabbit: %v", err)
		}
		defer pub.Close()
		dispatcher = pub
		log.Printf("dispatching via rabbitmq queue=%s", cfg.RabbitQueue)
	} else {
		pool = queue.NewPool(cfg.WorkerConcurrency)
		dispatcher = pool
		log.Printf("dispatching via in-process pool concurrency=%d", cfg.WorkerConcurrency)
	}

	lifecycle := transcription.NewLifecycle(store, adapter, dispatcher)
	if pool != nil {
		pool.Start(ctx, lifecycle)
	}

	query := transcription.NewQuery(store)
	metrics := transcription.NewAggregator(store)
	uploads := upload.NewSaver(cfg.UploadsDir, cfg.MaxFileSize, cfg.AllowedFormats)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	h := handlers.NewHandler(cfg, gdb, lifecycle, query, metrics, uploads)
	router := httpapi.NewRouter(h, cfg, rds)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		log.Printf("server listening addr=%s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if pool != nil {
		pool.Stop()
	}
}
