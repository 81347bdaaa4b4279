package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerAddr string

	DBDriver string
	DBDSN    string

	// Uploads
	UploadsDir     string
	MaxFileSize    int64
	AllowedFormats []string

	// Engine
	EngineBaseURL      string
	DefaultModelSize   string
	AllowedModelSizes  []string
	MaxAudioDuration   time.Duration
	DiarizationTimeout time.Duration

	// Background execution
	WorkerConcurrency int

	// RabbitMQ (optional; in-process pool is used when URL is empty)
	RabbitURL   string
	RabbitQueue string

	// Redis (rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Auth
	APIKeys            []string
	RateLimitPerMinute int
}

func Load() Config {
	addr := os.Getenv("SERVER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		switch driver {
		case "mysql":
			dsn = "app:apppass@tcp(127.0.0.1:3306)/transcription?charset=utf8mb4&parseTime=true&loc=Local"
		default:
			dsn = "transcription_jobs.db"
		}
	}

	uploadsDir := os.Getenv("UPLOADS_DIR")
	if uploadsDir == "" {
		uploadsDir = "/tmp/transcription-uploads"
	}

	maxFileSize := int64(100 * 1024 * 1024)
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxFileSize = n
		}
	}

	formats := []string{"mp3", "wav", "m4a", "flac", "ogg"}
	if v := os.Getenv("ALLOWED_AUDIO_FORMATS"); v != "" {
		formats = splitCSV(v)
	}

	engineURL := os.Getenv("ENGINE_BASE_URL")
	if engineURL == "" {
		engineURL = "http://localhost:9000"
	}

	modelSize := os.Getenv("MODEL_SIZE")
	if modelSize == "" {
		modelSize = "large-v2"
	}

	maxAudio := 2 * time.Hour
	if v := os.Getenv("MAX_AUDIO_DURATION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxAudio = time.Duration(n) * time.Second
		}
	}

	diarizeTimeout := 300 * time.Second
	if v := os.Getenv("DIARIZATION_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			diarizeTimeout = time.Duration(n) * time.Second
		}
	}

	concurrency := 2
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			concurrency = n
		}
	}
	if concurrency > 50 {
		concurrency = 50
	}

	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "transcription_jobs"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	rateLimit := 60
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rateLimit = n
		}
	}

	return Config{
		ServerAddr: addr,

		DBDriver: driver,
		DBDSN:    dsn,

		UploadsDir:     uploadsDir,
		MaxFileSize:    maxFileSize,
		AllowedFormats: formats,

		EngineBaseURL:      engineURL,
		DefaultModelSize:   modelSize,
		AllowedModelSizes:  []string{"tiny", "base", "small", "medium", "large", "large-v2"},
		MaxAudioDuration:   maxAudio,
		DiarizationTimeout: diarizeTimeout,

		WorkerConcurrency: concurrency,

		RabbitURL:   os.Getenv("RABBIT_URL"),
		RabbitQueue: rabbitQueue,

		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		APIKeys:            splitCSV(os.Getenv("API_KEYS")),
		RateLimitPerMinute: rateLimit,
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
