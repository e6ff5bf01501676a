package config

import (
	"context"
	"log/slog"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Backend BackendConfig
	Geo     GeoConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

// BackendConfig points at the donation backend, the single source of truth
// for donation state.
type BackendConfig struct {
	BaseURL      string `env:"BACKEND_URL,           default=http://localhost:8081/api"`
	WebSocketURL string `env:"BACKEND_WS_URL,        default=ws://localhost:8081/api/ws"`
	ServiceToken string `env:"BACKEND_SERVICE_TOKEN"`
}

type GeoConfig struct {
	NominatimURL  string `env:"NOMINATIM_URL,  default=https://nominatim.openstreetmap.org/reverse"`
	IPAPIURL      string `env:"IPAPI_URL,      default=http://ip-api.com/json/"`
	DirectionsURL string `env:"DIRECTIONS_URL, default=https://api.openrouteservice.org/v2/directions/driving-car/geojson"`
	DirectionsKey string `env:"DIRECTIONS_KEY"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=donation_tracking"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(logger *slog.Logger) *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		logger.Error("Failed to load configuration", "error", err)
		panic(err)
	}
	return &cfg
}
