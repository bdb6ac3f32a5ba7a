package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/couchcryptid/storm-front-detection/internal/terrain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	KafkaWaitTimeout time.Duration
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Detection configuration.
	Methods   []fronts.Method
	Thermal   fronts.ThermalParams
	WindShift fronts.WindShiftParams

	// Terrain filter configuration. The filter is enabled when TerrainFile is set.
	TerrainFile         string
	TerrainEnabled      bool
	TerrainMaxElevation float64
	TerrainCacheSize    int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	kafkaWait, err := parseKafkaWaitTimeout()
	if err != nil {
		return nil, err
	}

	methods, err := fronts.ParseMethods(sharedcfg.EnvOrDefault("FRONT_METHODS", "thermal,wind_shift"))
	if err != nil {
		return nil, fmt.Errorf("invalid FRONT_METHODS: %w", err)
	}

	thermal := fronts.DefaultThermalParams()
	if thermal.K1, err = parsePositiveFloat("THERMAL_K1", thermal.K1); err != nil {
		return nil, err
	}
	if thermal.K2, err = parsePositiveFloat("THERMAL_K2", thermal.K2); err != nil {
		return nil, err
	}

	windShift := fronts.DefaultWindShiftParams()
	if windShift.Threshold, err = parsePositiveFloat("WIND_SHIFT_THRESHOLD", windShift.Threshold); err != nil {
		return nil, err
	}

	maxElevation, err := parsePositiveFloat("TERRAIN_MAX_ELEVATION", terrain.DefaultMaxElevation)
	if err != nil {
		return nil, err
	}

	terrainFile := os.Getenv("TERRAIN_FILE")

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "gridded-fields"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "detected-fronts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-front-detection"),
		KafkaWaitTimeout:   kafkaWait,
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Methods:   methods,
		Thermal:   thermal,
		WindShift: windShift,

		TerrainFile:         terrainFile,
		TerrainEnabled:      terrainFile != "",
		TerrainMaxElevation: maxElevation,
		TerrainCacheSize:    parseTerrainCacheSize(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return v, nil
}

func parseKafkaWaitTimeout() (time.Duration, error) {
	s := os.Getenv("KAFKA_WAIT_TIMEOUT")
	if s == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid KAFKA_WAIT_TIMEOUT %q: must be a positive duration", s)
	}
	return d, nil
}

func parseTerrainCacheSize() int {
	if s := os.Getenv("TERRAIN_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 16
}
