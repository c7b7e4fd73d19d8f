package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// It is read once at startup and never mutated afterwards.
type Config struct {
	// HTTP
	ServerAddr        string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOrigin     string
	RequestLogEnabled bool

	// 数据库配置
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBLogLevel string

	// 对象存储配置
	StorageDriver      string // "minio" or "gcs"
	StoragePrefix      string // key prefix for track objects, e.g. "tracks/"
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioRegion        string
	MinioUseSSL        bool
	GCSBucket          string
	GCSCredentialsFile string
	StorageTimeout     time.Duration

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// Audio tooling
	FFmpegPath             string
	FFprobePath            string
	AudioBitrate           string  // e.g., "128k"
	LoudnessTarget         float64 // integrated loudness in LUFS
	NormalizeBaseTimeout   time.Duration
	NormalizeTimeoutFactor float64 // seconds of processing allowed per second of audio

	// Ingestion limits
	MaxUploadSize            int64   // bytes
	MaxTrackNameLength       int     // characters
	MaxTrackDuration         float64 // seconds
	SupportedTrackExtensions []string
	RequiredAudioFormat      string
	MaxConcurrentIngests     int
	IngestQueueWait          time.Duration
	VerifyConcurrency        int
	TempDir                  string

	// 日志配置
	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("30s") as well as plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	ffmpegPath := getEnv("FFMPEG_PATH", "ffmpeg")

	return &Config{
		ServerAddr:        getEnv("SERVER_ADDR", ":8080"),
		ReadTimeout:       getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:      getEnvDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:       getEnvDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout:   getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 5*time.Second),
		AllowedOrigin:     getEnv("CORS_ALLOWED_ORIGIN", "*"),
		RequestLogEnabled: getEnvBool("REQUEST_LOG", true),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:     getEnv("DB_NAME", "trackfm"),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", "minio")),
		StoragePrefix:      getEnv("STORAGE_PREFIX", "tracks/"),
		MinioEndpoint:      getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:        getEnv("MINIO_BUCKET", "trackfm"),
		MinioRegion:        getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:        getEnvBool("MINIO_USE_SSL", false),
		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		StorageTimeout:     getEnvDuration("STORAGE_TIMEOUT", 30*time.Second),

		RedisHost:     getEnv("REDIS_HOST", ""), // empty disables the cache
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTTL:      getEnvDuration("REDIS_TTL", 10*time.Minute),

		FFmpegPath:             ffmpegPath,
		FFprobePath:            getEnv("FFPROBE_PATH", strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1)),
		AudioBitrate:           getEnv("AUDIO_BITRATE", "128k"),
		LoudnessTarget:         getEnvFloat("LOUDNESS_TARGET", -16),
		NormalizeBaseTimeout:   getEnvDuration("NORMALIZE_BASE_TIMEOUT", 10*time.Second),
		NormalizeTimeoutFactor: getEnvFloat("NORMALIZE_TIMEOUT_FACTOR", 2),

		MaxUploadSize:            getEnvInt64("MAX_UPLOAD_SIZE", 3000000),
		MaxTrackNameLength:       getEnvInt("MAX_TRACK_NAME_LENGTH", 15),
		MaxTrackDuration:         getEnvFloat("MAX_TRACK_DURATION", 15.0),
		SupportedTrackExtensions: getEnvList("SUPPORTED_TRACK_EXTENSIONS", []string{".mp3"}),
		RequiredAudioFormat:      getEnv("REQUIRED_AUDIO_FORMAT", "mp3"),
		MaxConcurrentIngests:     getEnvInt("MAX_CONCURRENT_INGESTS", 4),
		IngestQueueWait:          getEnvDuration("INGEST_QUEUE_WAIT", 30*time.Second),
		VerifyConcurrency:        getEnvInt("VERIFY_CONCURRENCY", 8),
		TempDir:                  getEnv("TEMP_DIR", os.TempDir()),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 30),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// RedisAddr returns host:port, or "" when the cache is disabled.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}
