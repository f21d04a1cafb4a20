package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	PostgresConnStr string
	MongoURI        string
	MongoDatabase   string

	AuthProvider            string
	JWTSecret               string
	FirebaseCredentialsPath string

	MetricsPort string
	// TrustedProxies lists CIDR ranges allowed to set X-Forwarded-For.
	TrustedProxies []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers          []string
	KafkaTopicBuddyEvents string

	StripeSecretKey string
	ResendAPIKey    string
	EmailFrom       string
	SiteURL         string

	MatchCandidateLimit  int
	ResetRequestsPerHour int
	ResetTokenTTL        time.Duration
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		PostgresConnStr: getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDatabase:   getEnv("MONGO_DATABASE", "mindhaven"),

		AuthProvider:            strings.ToLower(getEnv("AUTH_PROVIDER", AuthProviderJWT)),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),

		MetricsPort:    getEnv("METRICS_PORT", "9090"),
		TrustedProxies: getEnvCSV("TRUSTED_PROXIES"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		KafkaBrokers:          getEnvCSV("KAFKA_BROKERS"),
		KafkaTopicBuddyEvents: getEnv("KAFKA_TOPIC_BUDDY_EVENTS", "buddy_match_events"),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		ResendAPIKey:    getEnv("RESEND_API_KEY", ""),
		EmailFrom:       getEnv("EMAIL_FROM", "MindHaven <no-reply@mindhaven.app>"),
		SiteURL:         strings.TrimSuffix(getEnv("SITE_URL", "http://localhost:3000"), "/"),

		MatchCandidateLimit:  getEnvInt("MATCH_CANDIDATE_LIMIT", 10),
		ResetRequestsPerHour: getEnvInt("RESET_REQUESTS_PER_HOUR", 3),
		ResetTokenTTL:        getEnvDuration("RESET_TOKEN_TTL", time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvCSV(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
