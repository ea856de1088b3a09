package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port               string
	DatabaseURL        string
	DBMaxConns         int
	DBMinConns         int
	DBMaxConnLifetime  time.Duration
	RequestTimeoutSec  int
	JWTSecret          []byte
	CORSOrigins        []string
	DataEncryptionKeys string
	CurrentDataKeyVer  string
	AppPublicURL       string
	SeedDev            bool
	InviteTTL          time.Duration
	Timezone           string
	ReminderAPIKey     string
	// Logs e erros
	LogLevel  string
	LogFormat string
	SentryDSN string
	SentryEnv string
	// Cache compartilhado (vazio = cache em memória)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Storage S3 (documentos e comprovantes)
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3UsePathStyle bool
	// Fila de notificações: "kafka", "sqs" ou "inline"
	NotifyTransport string
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaGroupID    string
	SQSQueueURL     string
	// Push (FCM HTTP v1)
	FCMEndpoint    string
	FCMProjectID   string
	FCMAccessToken string
}

func Load() *Config {
	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		jwtSecret = "default-secret-min-32-chars-required!!"
	}
	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns:         getEnvInt("DB_MIN_CONNS", 2),
		DBMaxConnLifetime:  time.Duration(getEnvInt("DB_MAX_CONN_LIFETIME_MIN", 30)) * time.Minute,
		RequestTimeoutSec:  getEnvInt("REQUEST_TIMEOUT_SEC", 30),
		JWTSecret:          []byte(jwtSecret),
		CORSOrigins:        splitTrim(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		DataEncryptionKeys: getEnv("DATA_ENCRYPTION_KEYS", "v1:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
		CurrentDataKeyVer:  getEnv("CURRENT_DATA_KEY_VERSION", "v1"),
		AppPublicURL:       getEnv("APP_PUBLIC_URL", "http://localhost:3000"),
		SeedDev:            os.Getenv("SEED_DEV") == "1",
		InviteTTL:          time.Duration(getEnvInt("INVITE_TTL_DAYS", 4)) * 24 * time.Hour,
		Timezone:           getEnv("REMINDER_CRON_TZ", getEnv("APP_TZ", "America/Sao_Paulo")),
		ReminderAPIKey:     os.Getenv("REMINDER_API_KEY"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		SentryDSN:          os.Getenv("SENTRY_DSN"),
		SentryEnv:          getEnv("SENTRY_ENV", "development"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		S3Bucket:           getEnv("S3_BUCKET", "patient-documents"),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3UsePathStyle:     getEnv("S3_USE_PATH_STYLE", "true") == "true",
		NotifyTransport:    getEnv("NOTIFY_TRANSPORT", "inline"),
		KafkaBrokers:       splitTrim(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "push-notifications"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "nascere-notifier"),
		SQSQueueURL:        os.Getenv("SQS_QUEUE_URL"),
		FCMEndpoint:        getEnv("FCM_ENDPOINT", "https://fcm.googleapis.com"),
		FCMProjectID:       os.Getenv("FCM_PROJECT_ID"),
		FCMAccessToken:     os.Getenv("FCM_ACCESS_TOKEN"),
	}
}

// Location carrega o fuso de Timezone; UTC se inválido.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func splitTrim(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
