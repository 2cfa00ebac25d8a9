package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// SymbolConfig declares one tradable instrument and its tick size.
type SymbolConfig struct {
	Name string `mapstructure:"name"`
	Tick string `mapstructure:"tick"`
}

func (s SymbolConfig) TickSize() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s.Tick)
	if err != nil || d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("symbol %s: bad tick %q", s.Name, s.Tick)
	}
	return d, nil
}

type KafkaConfig struct {
	Brokers       []string      `mapstructure:"brokers"`
	TradeTopic    string        `mapstructure:"trade_topic"`
	OutboxTopic   string        `mapstructure:"outbox_topic"`
	DrainInterval time.Duration `mapstructure:"drain_interval"`
}

type WALConfig struct {
	Dir             string        `mapstructure:"dir"`
	OutboxDir       string        `mapstructure:"outbox_dir"`
	SegmentSize     int64         `mapstructure:"segment_size"`
	SegmentDuration time.Duration `mapstructure:"segment_duration"`
}

type SnapshotConfig struct {
	Dir      string        `mapstructure:"dir"`
	Interval time.Duration `mapstructure:"interval"`
}

type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`
	WSAddr   string `mapstructure:"ws_addr"`

	Symbols     []SymbolConfig `mapstructure:"symbols"`
	DepthLevels int            `mapstructure:"depth_levels"`

	WAL      WALConfig      `mapstructure:"wal"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// Load reads server.yaml from path (or the working directory) with
// HERMES_-prefixed environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("server")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("HERMES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("ws_addr", ":8081")
	v.SetDefault("depth_levels", 5)
	v.SetDefault("wal.dir", "data/wal")
	v.SetDefault("wal.outbox_dir", "data/outbox")
	v.SetDefault("wal.segment_size", 64<<20)
	v.SetDefault("wal.segment_duration", time.Hour)
	v.SetDefault("snapshot.dir", "data/snapshot")
	v.SetDefault("snapshot.interval", time.Minute)
	v.SetDefault("kafka.drain_interval", 250*time.Millisecond)
	v.SetDefault("symbols", []map[string]any{{"name": "DEFAULT", "tick": "0.01"}})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// No file: defaults + env are enough.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("config: no symbols declared")
	}
	return &cfg, nil
}
