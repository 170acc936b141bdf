package config

import (
	"encoding/base64"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDSN    string
	HTTPAddr string
	LogLevel string
	RedisDSN string

	S3Endpoint string
	S3Bucket   string
	S3Region   string
	S3PublicURL string

	// raw secrets kept in-memory only; never log these
	JWTSecret    []byte
	JWTSecretRaw string
	TokenTTL     time.Duration

	CORSOrigins []string

	// websocket limits
	WSMaxPayloadBytes int64
	WSConnectRate     float64
	WSConnectBurst    int
}

func Load() (Config, error) {
	cfg := Config{
		DBDSN:       os.Getenv("DB_DSN"),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:    getenvDefault("LOG_LEVEL", "info"),
		RedisDSN:    getenvDefault("REDIS_DSN", "redis://localhost:6379/0"),
		S3Endpoint:  getenvDefault("S3_ENDPOINT", ""),
		S3Bucket:    getenvDefault("S3_BUCKET", ""),
		S3Region:    getenvDefault("S3_REGION", "auto"),
		S3PublicURL: getenvDefault("S3_PUBLIC_URL", ""),
	}

	if cfg.DBDSN == "" {
		return Config{}, errors.New("missing DB_DSN")
	}

	cfg.JWTSecretRaw = os.Getenv("JWT_SECRET")
	if cfg.JWTSecretRaw == "" {
		return Config{}, errors.New("missing JWT_SECRET")
	}
	// accept base64 secrets; fall back to the raw bytes
	if decoded, err := base64.StdEncoding.DecodeString(cfg.JWTSecretRaw); err == nil && len(decoded) >= 32 {
		cfg.JWTSecret = decoded
	} else {
		cfg.JWTSecret = []byte(cfg.JWTSecretRaw)
	}
	if len(cfg.JWTSecret) < 16 {
		return Config{}, errors.New("JWT_SECRET too short (need at least 16 bytes)")
	}

	ttlHours, err := strconv.Atoi(getenvDefault("TOKEN_TTL_HOURS", "24"))
	if err != nil || ttlHours < 1 {
		return Config{}, errors.New("TOKEN_TTL_HOURS must be a positive integer")
	}
	cfg.TokenTTL = time.Duration(ttlHours) * time.Hour

	maxPayload, err := strconv.ParseInt(getenvDefault("WS_MAX_PAYLOAD_BYTES", "16384"), 10, 64)
	if err != nil || maxPayload < 1024 {
		return Config{}, errors.New("WS_MAX_PAYLOAD_BYTES must be >= 1024")
	}
	cfg.WSMaxPayloadBytes = maxPayload

	rate, err := strconv.ParseFloat(getenvDefault("WS_CONNECT_RATE", "5"), 64)
	if err != nil || rate <= 0 {
		return Config{}, errors.New("WS_CONNECT_RATE must be > 0")
	}
	cfg.WSConnectRate = rate

	burst, err := strconv.Atoi(getenvDefault("WS_CONNECT_BURST", "10"))
	if err != nil || burst < 1 {
		return Config{}, errors.New("WS_CONNECT_BURST must be >= 1")
	}
	cfg.WSConnectBurst = burst

	// parse CORS origins
	corsOrigins := getenvDefault("CORS_ORIGINS", "")
	if corsOrigins != "" {
		cfg.CORSOrigins = strings.Split(corsOrigins, ",")
		for i := range cfg.CORSOrigins {
			cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
		}
	} else {
		cfg.CORSOrigins = []string{"http://localhost:5173"} // default frontend dev origin
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
