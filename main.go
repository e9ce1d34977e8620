package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/strauser85/snap-sold-sub000/api"
	"github.com/strauser85/snap-sold-sub000/config"
	"github.com/strauser85/snap-sold-sub000/encoder"
	"github.com/strauser85/snap-sold-sub000/jobs"
	"github.com/strauser85/snap-sold-sub000/kafka"
	"github.com/strauser85/snap-sold-sub000/narration"
	"github.com/strauser85/snap-sold-sub000/session"
	"github.com/strauser85/snap-sold-sub000/storage"
	"github.com/strauser85/snap-sold-sub000/types"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	cfg := config.Load()

	log.Println("🎬 SnapSold Video Service - Starting...")

	prober, err := encoder.NewFFmpegProber()
	if err != nil {
		log.Fatalf("❌ ffmpeg probe failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := newJobStore(ctx, cfg)
	proc := session.NewProcessor(store, prober, session.DefaultOptions())

	if cfg.NarrationURL != "" {
		proc.SetNarrator(narration.NewClient(cfg.NarrationURL, cfg.NarrationTimeout))
		log.Printf("🗣️ Narration service: %s", cfg.NarrationURL)
	}

	if cfg.S3Bucket != "" {
		uploader, err := storage.NewS3Store(ctx, storage.Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			Region: cfg.S3Region,
		})
		if err != nil {
			log.Fatalf("❌ Failed to initialize S3 delivery: %v", err)
		}
		proc.SetUploader(uploader)
		log.Printf("📦 S3 delivery: s3://%s/%s", cfg.S3Bucket, cfg.S3Prefix)
	}

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := newRequestConsumer(cfg, proc)
		if err != nil {
			log.Fatalf("❌ Failed to create Kafka consumer: %v", err)
		}
		if err := consumer.Start(ctx); err != nil {
			log.Fatalf("❌ Kafka consumer failed: %v", err)
		}
		defer consumer.Close()
	}

	srv := api.NewServer(proc, store)
	addr := fmt.Sprintf(":%d", cfg.Port)

	log.Printf("🚀 API Server listening on %s", addr)
	log.Println("📌 Endpoints:")
	log.Println("   POST /api/videos            - Create a listing video")
	log.Println("   GET  /api/videos/:id        - Job status")
	log.Println("   GET  /api/videos/:id/frame  - Preview frame at time t")
	log.Println("   POST /api/videos/:id/stop   - Cancel a running session")
	log.Println("   GET  /health                - Health check")

	httpSrv := &http.Server{Addr: addr, Handler: srv.NewRouter()}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down HTTP server...")
		_ = httpSrv.Shutdown(context.Background())
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("❌ Server failed: %v", err)
	}
	os.Exit(0)
}

// newJobStore prefers Redis and falls back to the in-memory store so the
// service still runs on a laptop with nothing else up.
func newJobStore(ctx context.Context, cfg config.Config) jobs.Store {
	if cfg.RedisAddr == "" {
		log.Println("📋 Job store: in-memory (REDIS_ADDR not set)")
		return jobs.NewMemoryStore()
	}
	store, err := jobs.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.JobTTL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}
	log.Printf("📋 Job store: Redis at %s", cfg.RedisAddr)
	return store
}

// newRequestConsumer wires the Kafka intake to the processor. Requests that
// fail validation are marked and dropped; processing failures stay unmarked
// so the request is redelivered once the encoder frees up.
func newRequestConsumer(cfg config.Config, proc *session.Processor) (*kafka.Consumer, error) {
	handler := &kafka.TypedMessageHandler[types.VideoRequest]{
		Validate: func(req *types.VideoRequest) bool {
			if err := proc.Validate(req); err != nil {
				log.Printf("dropping invalid request %s: %v", req.ID, err)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, req *types.VideoRequest) error {
			return proc.Process(ctx, *req)
		},
		AlwaysMark: true,
	}

	log.Printf("🔗 Kafka Brokers: %v", cfg.KafkaBrokers)
	log.Printf("📋 Topic: %s (group: %s)", cfg.KafkaTopic, cfg.KafkaGroupID)

	return kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
		Handler: handler,
	})
}
