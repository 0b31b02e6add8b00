package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
)

// ByteSize is a size in bytes that may be written as "512MiB" or "1GB".
type ByteSize uint64

func (b ByteSize) String() string { return humanize.IBytes(uint64(b)) }

// ParseByteSize parses a human readable size. A bare number is bytes.
func ParseByteSize(s string) (ByteSize, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(ByteSize(0))

	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return ParseByteSize(v)
		case int:
			if v < 0 {
				return nil, fmt.Errorf("negative size: %d", v)
			}
			return ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("negative size: %d", v)
			}
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil
		case float64:
			if v < 0 {
				return nil, fmt.Errorf("negative size: %v", v)
			}
			return ByteSize(v), nil
		case ByteSize:
			return v, nil
		default:
			return nil, fmt.Errorf("unsupported size type: %T", v)
		}
	}
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Config is everything the command line tools need.
type Config struct {
	Dir             string        `mapstructure:"dir"`
	Capacity        ByteSize      `mapstructure:"capacity"`
	Strategies      []string      `mapstructure:"strategy"`
	MaxAge          time.Duration `mapstructure:"max-age"`
	MinFree         ByteSize      `mapstructure:"min-free"`
	Semantic        string        `mapstructure:"semantic"`
	KeyHash         string        `mapstructure:"key-hash"`
	QueueSize       int           `mapstructure:"queue-size"`
	EnforceInterval time.Duration `mapstructure:"enforce-interval"`

	Log    LogConfig    `mapstructure:",squash"`
	Server ServerConfig `mapstructure:",squash"`
}

// LogConfig selects where and how logs are written.
type LogConfig struct {
	Level      string `mapstructure:"log-level"`
	Format     string `mapstructure:"log-format"`
	File       string `mapstructure:"log-file"`
	MaxSize    int    `mapstructure:"log-max-size"`
	MaxBackups int    `mapstructure:"log-max-backups"`
	MaxAge     int    `mapstructure:"log-max-age"`
	Compress   bool   `mapstructure:"log-compress"`
}

// ServerConfig is only used by the serve command.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	Upstreams       []string      `mapstructure:"upstream"`
	UpstreamTimeout time.Duration `mapstructure:"upstream-timeout"`
	UpstreamCA      string        `mapstructure:"upstream-ca"`
	AllowURL        bool          `mapstructure:"allow-url"`
	Metrics         bool          `mapstructure:"metrics"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}
