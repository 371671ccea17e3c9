// Package config loads pipeline configuration from the environment.
//
// The loading sequence is:
//  1. Load a .env file via godotenv (non-fatal if absent; never overrides
//     variables already set).
//  2. Process envconfig struct tags to populate the Config struct.
//  3. Validate the struct with go-playground/validator.
//
// Configuration is loaded once at startup and immutable afterwards;
// components receive the subsets they need.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the top-level pipeline configuration.
type Config struct {
	Input         InputConfig
	Interpolation InterpolationConfig
	Validation    ValidationConfig
	Run           RunConfig
	Server        ServerConfig
	Kafka         KafkaConfig

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
}

// InputConfig locates the observation CSV and names its columns.
type InputConfig struct {
	CSVPath    string `envconfig:"CSV_PATH" validate:"required"`
	IDColumn   string `envconfig:"ID_COLUMN" default:"id"`
	LatColumn  string `envconfig:"LAT_COLUMN" default:"latitude"`
	LonColumn  string `envconfig:"LON_COLUMN" default:"longitude"`
	DateColumn string `envconfig:"DATE_COLUMN" default:"date"`

	// Variables are the value columns to interpolate, in priority order.
	Variables []string `envconfig:"VARIABLES" validate:"required,min=1"`
}

// InterpolationConfig tunes the engine and the grid builder.
type InterpolationConfig struct {
	Method         string  `envconfig:"METHOD" default:"kriging" validate:"oneof=kriging idw"`
	VariogramModel string  `envconfig:"VARIOGRAM_MODEL" default:"spherical" validate:"oneof=linear spherical exponential gaussian power"`
	BufferFraction float64 `envconfig:"BUFFER_FRACTION" default:"0.2" validate:"gte=0"`
	CellSize       float64 `envconfig:"CELL_SIZE" default:"0.005" validate:"gt=0"`
	MinPoints      int     `envconfig:"MIN_POINTS" default:"10" validate:"gte=1"`
	MaxGridDim     int     `envconfig:"MAX_GRID_DIM" default:"400" validate:"gte=2"`
	IDWPower       float64 `envconfig:"IDW_POWER" default:"2" validate:"gt=0"`
}

// ValidationConfig tunes cross-validation. Scope "pooled" validates each
// variable once across all dates; "daily" validates every unit separately.
type ValidationConfig struct {
	Enabled bool   `envconfig:"CROSS_VALIDATION" default:"true"`
	Folds   int    `envconfig:"CV_FOLDS" default:"5" validate:"gte=2"`
	Seed    int64  `envconfig:"CV_SEED" default:"42"`
	Scope   string `envconfig:"CV_SCOPE" default:"pooled" validate:"oneof=pooled daily"`
}

// RunConfig bounds the work a single run performs.
type RunConfig struct {
	OutputDir           string `envconfig:"OUTPUT_DIR" default:"output"`
	MaxDatesPerVariable int    `envconfig:"MAX_DATES_PER_VARIABLE" default:"30" validate:"gte=1"`
	Workers             int    `envconfig:"WORKERS" default:"4" validate:"gte=1"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// KafkaConfig configures the optional outcome-event publisher.
type KafkaConfig struct {
	Enabled      bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers      []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	OutcomeTopic string   `envconfig:"KAFKA_OUTCOME_TOPIC" default:"geostack.run.outcomes"`
}

// Load reads, populates, and validates the configuration.
func Load() (*Config, error) {
	// Does not override variables already set in the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	return &cfg, nil
}
