package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Reddit struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	UserAgent    string
	APIURL       string
	AuthURL      string
	PublicURL    string
}

type ImageHost struct {
	URL      string
	ClientID string
}

type Config struct {
	Reddit             Reddit
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	PostgresURI        string
	RedisURI           string
	FrontendURL        string
	R2                 R2
	ImageHost          ImageHost
	SecretKey          string
	CookieName         string
	CronSecret         string
	CronAllowedIPs     []string
	RateLimitBackend   string
	ScheduleSpec       string
	TokenRefreshSpec   string
	PublishBatchSize   int
	PublishBatchDelay  time.Duration
	HTTPTimeout        time.Duration
	Port               string
	LogLevel           string
}

func LoadConfig() *Config {
	return &Config{
		Reddit: Reddit{
			ClientID:     getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("REDDIT_REDIRECT_URI", "http://localhost:3000/auth/reddit/callback"),
			UserAgent:    getEnv("REDDIT_USER_AGENT", "web:redditflow:v1.0"),
			APIURL:       getEnv("REDDIT_API_URL", "https://oauth.reddit.com"),
			AuthURL:      getEnv("REDDIT_AUTH_URL", "https://www.reddit.com"),
			PublicURL:    getEnv("REDDIT_PUBLIC_URL", "https://www.reddit.com"),
		},
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		RedisURI:           getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		ImageHost: ImageHost{
			URL:      getEnv("IMAGE_HOST_URL", "https://api.imgur.com/3/image"),
			ClientID: getEnv("IMAGE_HOST_CLIENT_ID", ""),
		},
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "redditflow_session"),
		CronSecret:        getEnv("CRON_SECRET", ""),
		CronAllowedIPs:    getEnvList("CRON_ALLOWED_IPS"),
		RateLimitBackend:  getEnv("RATE_LIMIT_BACKEND", "memory"),
		ScheduleSpec:      getEnv("SCHEDULE_SPEC", "@every 5m"),
		TokenRefreshSpec:  getEnv("TOKEN_REFRESH_SPEC", "@every 10m"),
		PublishBatchSize:  getEnvInt("PUBLISH_BATCH_SIZE", 5),
		PublishBatchDelay: getEnvDuration("PUBLISH_BATCH_DELAY", 2*time.Second),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		Port:              getEnv("PORT", "3000"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
