package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort   string
	Env       string
	LogLevel  string
	LogFormat string

	SessionSecret       []byte
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool
	SelectionTTL        time.Duration

	DefaultLandingPath string
	SignInPath         string
	AccessDeniedPath   string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSslMode      string
	DBConnStr      string
	DBMaxOpenConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MemoryStoreSize int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	AppConfig = FromEnv()
}

// devSessionSecret is the fallback secret, accepted only in development over plain HTTP.
const devSessionSecret = "dev-session-secret"

// FromEnv builds a Config from the process environment without touching .env files.
func FromEnv() *Config {
	cfg := &Config{
		APIPort:             getEnv("API_PORT", "8080"),
		Env:                 getEnv("APP_ENV", "production"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		SessionSecret:       []byte(getEnv("SESSION_SECRET", devSessionSecret)),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "users_sheet_session"),
		SessionCookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
		SelectionTTL:        getEnvAsDuration("SELECTION_TTL", 30*time.Minute),
		DefaultLandingPath:  getEnv("DEFAULT_LANDING_PATH", "/"),
		SignInPath:          getEnv("SIGNIN_PATH", "/account/signin"),
		AccessDeniedPath:    getEnv("ACCESS_DENIED_PATH", "/account/access-denied"),
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "user"),
		DBPassword:          getEnv("DB_PASSWORD", "password"),
		DBName:              getEnv("DB_NAME", "users_sheet"),
		DBSslMode:           getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns:      getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvAsInt("REDIS_DB", 0),
		MemoryStoreSize:     getEnvAsInt("MEMORY_STORE_SIZE", 10000),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode
	return cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects settings the server cannot run safely with.
func (c *Config) Validate() error {
	if !c.IsDevelopment() || c.SessionCookieSecure {
		if string(c.SessionSecret) == devSessionSecret {
			return errors.New("SESSION_SECRET must be set outside development")
		}
		if len(c.SessionSecret) < 16 {
			return errors.New("SESSION_SECRET must be at least 16 bytes outside development")
		}
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SelectionTTL <= 0 {
		return errors.New("SELECTION_TTL must be positive")
	}
	if c.SessionCookieName == "" {
		return errors.New("SESSION_COOKIE_NAME must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
