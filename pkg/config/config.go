package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	FirebaseCredentialsPath string
	FirebaseProjectID       string
	FirebaseStorageBucket   string
	JWTSecret               string
	AdminEmails             []string
	SMTPHost                string
	SMTPPort                int
	SMTPEmail               string
	SMTPPassword            string
	FeedbackRecipient       string
	AdminURL                string
	CommentResyncInterval   time.Duration
	FeedPageSize            int
	FeedHighlightTTL        time.Duration
	CORSOrigins             []string
}

// Load reads configuration from the environment, after merging a .env file if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "showyourbits"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseStorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		AdminEmails:             splitList(getEnv("ADMIN_EMAILS", "")),
		SMTPHost:                getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:                getEnvInt("SMTP_PORT", 587),
		SMTPEmail:               getEnv("SMTP_EMAIL", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		FeedbackRecipient:       getEnv("FEEDBACK_RECIPIENT", "showyourbits@protonmail.com"),
		AdminURL:                getEnv("ADMIN_URL", "https://showyourbits.com/admin"),
		CommentResyncInterval:   getEnvDuration("COMMENT_RESYNC_INTERVAL", 10*time.Minute),
		FeedPageSize:            getEnvInt("FEED_PAGE_SIZE", 10),
		FeedHighlightTTL:        getEnvDuration("FEED_HIGHLIGHT_TTL", 3*time.Second),
		CORSOrigins:             splitList(getEnv("CORS_ORIGINS", "")),
	}
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
