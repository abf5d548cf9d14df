package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/prepdeck/prepdeck/config"
	"github.com/prepdeck/prepdeck/internal/api/handlers"
	"github.com/prepdeck/prepdeck/internal/api/middleware"
	"github.com/prepdeck/prepdeck/internal/api/routes"
	"github.com/prepdeck/prepdeck/internal/cache"
	"github.com/prepdeck/prepdeck/internal/call"
	"github.com/prepdeck/prepdeck/internal/logger"
	"github.com/prepdeck/prepdeck/internal/providers/llm"
	"github.com/prepdeck/prepdeck/internal/providers/stt"
	"github.com/prepdeck/prepdeck/internal/providers/voice"
	mongorepo "github.com/prepdeck/prepdeck/internal/repositories/mongo"
	pgrepo "github.com/prepdeck/prepdeck/internal/repositories/postgres"
	"github.com/prepdeck/prepdeck/internal/services"
	"github.com/prepdeck/prepdeck/internal/storage"
	"github.com/prepdeck/prepdeck/internal/workers"
)

func main() {
	_ = godotenv.Load()

	lg := logger.New()
	ctx := context.Background()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	lg.Info("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	lg.Info("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	lg.Info("Redis connected")

	// LLM provider (Vertex Gemini)
	gemini, err := llm.NewVertexGemini(ctx,
		os.Getenv("GCP_PROJECT"),
		os.Getenv("GCP_LOCATION"),
		os.Getenv("GEMINI_MODEL"),
	)
	if err != nil {
		log.Fatalf("Vertex init error: %v", err)
	}
	defer gemini.Close()

	// Optional transcript archive upload target
	var uploader storage.Uploader
	var signer storage.Signer
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		archive, err := storage.NewGCSArchive(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		defer archive.Close()
		uploader = archive
		signer = archive
	}

	db := config.MongoDatabase()
	rdb := config.RedisClient
	rcache := cache.NewRedisCache(rdb)

	interviewRepo := mongorepo.NewInterviewRepo(db)
	feedbackRepo := mongorepo.NewFeedbackRepo(db)
	scheduleRepo := mongorepo.NewScheduleRepo(db)
	transcriptRepo := pgrepo.NewTranscriptRepo(config.PostgresDB)

	interviewSvc := services.NewInterviewService(interviewRepo, llm.NewGeminiQuestionGenerator(gemini), rcache)
	feedbackSvc := services.NewFeedbackService(feedbackRepo, llm.NewGeminiScorer(gemini), transcriptRepo, uploader, rcache, lg)
	scheduleSvc := services.NewScheduleService(scheduleRepo)

	// Voice transport: a hosted vendor over websocket when configured,
	// otherwise the self-hosted Redis path fed by the transcriber workers.
	var transport handlers.TransportFactory
	if vendorURL := os.Getenv("VOICE_VENDOR_URL"); vendorURL != "" {
		token := os.Getenv("VOICE_VENDOR_TOKEN")
		transport = func(callID string) call.Transport {
			return voice.NewVendorTransport(vendorURL, token, lg)
		}
	} else {
		speech, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.Fatalf("Speech init error: %v", err)
		}
		defer speech.Close()

		pool := &workers.TranscriberPool{
			Redis:      rdb,
			NumWorkers: envInt("TRANSCRIBER_WORKERS", 4),
			STT:        speech,
			LLM:        gemini,
			Logger:     lg,
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("Transcriber pool error: %v", err)
		}

		transport = func(callID string) call.Transport {
			return voice.NewRedisTransport(rdb, callID, lg)
		}
	}

	callHandler := handlers.NewCallHandler(interviewSvc, feedbackSvc, transport, lg)

	// Start Gin server
	r := gin.New()
	r.Use(middleware.RequestLogger(lg), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Call:       callHandler,
		Interview:  handlers.NewInterviewHandler(interviewSvc, feedbackSvc, lg),
		Schedule:   handlers.NewScheduleHandler(scheduleSvc),
		Transcript: handlers.NewTranscriptHandler(transcriptRepo, signer, lg),
		WS:         handlers.NewWSHandler(callHandler, rdb),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func envInt(key string, def int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return def
}
