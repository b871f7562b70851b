package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreFirebase = "firebase"

	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

type Config struct {
	Port string
	Env  string

	StoreBackend            string
	FirebaseCredentialsPath string
	FirebaseDatabaseURL     string
	AuthMode                string
	JWTSecret               string

	PostgresConnStr string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	StoreTimeout          time.Duration
	SweepInterval         time.Duration
	ReconcileInterval     time.Duration
	DeliveryRetryInterval time.Duration
	FanoutConcurrency     int
	FanoutBatchSize       int
	DeliveryAttempts      int
	Timezone              string
}

// Load reads configuration from the environment, after loading .env if present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		StoreBackend:            getEnv("STORE_BACKEND", StoreMemory),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseDatabaseURL:     getEnv("FIREBASE_DATABASE_URL", ""),
		AuthMode:                getEnv("AUTH_MODE", AuthJWT),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "freelink"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getInt("REDIS_DB", 0),
		StoreTimeout:            getDuration("STORE_TIMEOUT", 5*time.Second),
		SweepInterval:           getDuration("SWEEP_INTERVAL", 15*time.Minute),
		ReconcileInterval:       getDuration("RECONCILE_INTERVAL", time.Hour),
		DeliveryRetryInterval:   getDuration("DELIVERY_RETRY_INTERVAL", 5*time.Minute),
		FanoutConcurrency:       getInt("FANOUT_CONCURRENCY", 16),
		FanoutBatchSize:         getInt("FANOUT_BATCH_SIZE", 500),
		DeliveryAttempts:        getInt("DELIVERY_ATTEMPTS", 3),
		Timezone:                getEnv("TIMEZONE", "UTC"),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreFirebase:
		if c.FirebaseCredentialsPath == "" || c.FirebaseDatabaseURL == "" {
			return fmt.Errorf("STORE_BACKEND=firebase needs FIREBASE_CREDENTIALS_PATH and FIREBASE_DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.AuthMode {
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("AUTH_MODE=jwt needs JWT_SECRET")
		}
	case AuthFirebase:
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("AUTH_MODE=firebase needs FIREBASE_CREDENTIALS_PATH")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location is the time zone that decides which calendar day it is for job deadlines.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NeedsFirebase reports whether any component talks to Firebase.
func (c *Config) NeedsFirebase() bool {
	return c.StoreBackend == StoreFirebase || c.AuthMode == AuthFirebase
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
