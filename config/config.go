package config

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/redis/go-redis/v9"
)

// ServerConfig defines the process-level configurations
type ServerConfig struct {
	Debug bool `koanf:"debug"`
}

// InferenceConfig defines the cloud inference endpoint configurations
type InferenceConfig struct {
	Host       string        `koanf:"host"`
	EndpointID string        `koanf:"endpointid"`
	APIKey     string        `koanf:"apikey"`
	APISecret  string        `koanf:"apisecret"`
	Timeout    time.Duration `koanf:"timeout"`
}

// CacheConfig related to the prediction response cache
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	TTL     time.Duration `koanf:"ttl"`
	Redis   struct {
		RedisOptions redis.Options `koanf:"redisoptions"`
	}
}

// TrackerConfig related to the IOU tracking pipeline
type TrackerConfig struct {
	IOUThreshold       float64 `koanf:"iouthreshold"`
	MinTrackLength     int     `koanf:"mintracklength"`
	ParkedDisplacement float64 `koanf:"parkeddisplacement"`
}

// OTELCollectorConfig related to OpenTelemetry collector
type OTELCollectorConfig struct {
	Enable bool   `koanf:"enable"`
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
}

// InfluxDBConfig defines the InfluxDB configuration.
type InfluxDBConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Token         string        `koanf:"token"`
	Org           string        `koanf:"org"`
	Bucket        string        `koanf:"bucket"`
	FlushInterval time.Duration `koanf:"flushinterval"`
}

// AppConfig defines
type AppConfig struct {
	Server        ServerConfig        `koanf:"server"`
	Inference     InferenceConfig     `koanf:"inference"`
	Cache         CacheConfig         `koanf:"cache"`
	Tracker       TrackerConfig       `koanf:"tracker"`
	OTELCollector OTELCollectorConfig `koanf:"otelcollector"`
	InfluxDB      InfluxDBConfig      `koanf:"influxdb"`
}

// Config - Global variable to export
var Config AppConfig

// Init - Assign global config to decoded config struct
func Init(filePath string) error {
	k := koanf.New(".")
	parser := yaml.Parser()

	if err := k.Load(confmap.Provider(map[string]any{
		"inference.host":             "https://predict.app.landing.ai",
		"inference.timeout":          "30s",
		"cache.ttl":                  "1h",
		"tracker.iouthreshold":       0.3,
		"tracker.mintracklength":     5,
		"tracker.parkeddisplacement": 10.0,
	}, "."), nil); err != nil {
		log.Fatal(err.Error())
	}

	if err := k.Load(file.Provider(filePath), parser); err != nil {
		return err
	}

	if err := k.Load(env.ProviderWithValue("CFG_", ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "CFG_")), "_", ".")
		if strings.Contains(v, ",") {
			return key, strings.Split(strings.TrimSpace(v), ",")
		}
		return key, v
	}), nil); err != nil {
		return err
	}

	if err := k.Unmarshal("", &Config); err != nil {
		return err
	}

	return ValidateConfig(&Config)
}

// ValidateConfig is for custom validation rules for the configuration
func ValidateConfig(cfg *AppConfig) error {
	if cfg.Tracker.IOUThreshold <= 0 || cfg.Tracker.IOUThreshold > 1 {
		return fmt.Errorf("tracker.iouthreshold must be in (0, 1], got %v", cfg.Tracker.IOUThreshold)
	}
	if cfg.Tracker.MinTrackLength < 1 {
		return fmt.Errorf("tracker.mintracklength must be positive, got %d", cfg.Tracker.MinTrackLength)
	}
	if cfg.Tracker.ParkedDisplacement < 0 {
		return fmt.Errorf("tracker.parkeddisplacement must not be negative, got %v", cfg.Tracker.ParkedDisplacement)
	}
	if cfg.InfluxDB.Enabled && (cfg.InfluxDB.URL == "" || cfg.InfluxDB.Bucket == "") {
		return fmt.Errorf("influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}
	return nil
}

var defaultConfigPath = "config/config.yaml"

// ParseConfigFlag allows clients to specify the relative path to the file from
// which the configuration will be loaded.
func ParseConfigFlag() string {
	configPath := flag.String("file", defaultConfigPath, "configuration file")
	flag.Parse()

	return *configPath
}
