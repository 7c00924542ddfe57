package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	Address        string
	Port           int
	MongoURI       string
	DBName         string
	JWTSecret      string
	TokenTTL       time.Duration
	AdminEmail     string
	AdminPass      string
	StorageDriver  string
	LogLevel       string
	LoginRateLimit float64
	LoginRateBurst int
	RequestTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getenv("PORT", "3004"))
	if err != nil {
		return nil, errors.New("invalid PORT value")
	}

	tokenTTL, err := time.ParseDuration(getenv("TOKEN_TTL", "2h"))
	if err != nil || tokenTTL <= 0 {
		return nil, errors.New("invalid TOKEN_TTL value")
	}

	rateLimit, err := strconv.ParseFloat(getenv("LOGIN_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid LOGIN_RATE_LIMIT value")
	}

	rateBurst, err := strconv.Atoi(getenv("LOGIN_RATE_BURST", "5"))
	if err != nil || rateBurst <= 0 {
		return nil, errors.New("invalid LOGIN_RATE_BURST value")
	}

	requestTimeout, err := time.ParseDuration(getenv("REQUEST_TIMEOUT", "10s"))
	if err != nil || requestTimeout <= 0 {
		return nil, errors.New("invalid REQUEST_TIMEOUT value")
	}

	storage := getenv("STORAGE_DRIVER", StorageMongo)
	if storage != StorageMongo && storage != StorageMemory {
		return nil, errors.New("invalid STORAGE_DRIVER value; expected mongo or memory")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	return &Config{
		Address:        getenv("ADDRESS", "0.0.0.0"),
		Port:           port,
		MongoURI:       getenv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:         getenv("DB_NAME", "equitywatch"),
		JWTSecret:      jwtSecret,
		TokenTTL:       tokenTTL,
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPass:      os.Getenv("ADMIN_PASS"),
		StorageDriver:  storage,
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LoginRateLimit: rateLimit,
		LoginRateBurst: rateBurst,
		RequestTimeout: requestTimeout,
	}, nil
}
