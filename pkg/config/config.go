package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/downfa11-org/stream-poster/pkg/payload"
	"github.com/downfa11-org/stream-poster/util"
)

const (
	BackendKinesis = "kinesis"
	BackendMemory  = "memory"

	DefaultPartitionKey = "GoStreamPoster"
)

type Mode int

const (
	ModeRun Mode = iota
	ModeDescribe
	ModeDelete
)

// PosterConfig holds everything the poster CLI needs for one invocation.
type PosterConfig struct {
	StreamName   string `yaml:"stream_name" json:"stream_name"`
	ShardCount   int    `yaml:"shard_count" json:"shard_count"`
	PartitionKey string `yaml:"partition_key" json:"partition_key"`
	PosterCount  int    `yaml:"poster_count" json:"poster_count"`
	PosterTime   int    `yaml:"poster_time" json:"poster_time"`
	Quiet        bool   `yaml:"quiet" json:"quiet"`
	DeleteStream bool   `yaml:"delete_stream" json:"delete_stream"`
	DescribeOnly bool   `yaml:"describe_only" json:"describe_only"`

	Backend  string `yaml:"backend" json:"backend"`
	Region   string `yaml:"region" json:"region"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	PollIntervalMS    int `yaml:"poll_interval_ms" json:"poll_interval_ms"`
	MaxCreateAttempts int `yaml:"max_create_attempts" json:"max_create_attempts"`

	Compression string        `yaml:"compression" json:"compression"`
	MetricsPort int           `yaml:"metrics_port" json:"metrics_port"`
	LogLevel    util.LogLevel `yaml:"log_level" json:"log_level"`
	ResultFile  string        `yaml:"result_file" json:"result_file"`
}

func Default() *PosterConfig {
	return &PosterConfig{
		PartitionKey:   DefaultPartitionKey,
		PosterCount:    1,
		PosterTime:     30,
		Backend:        BackendKinesis,
		PollIntervalMS: 500,
		Compression:    string(payload.CodecNone),
		LogLevel:       util.LogLevelInfo,
	}
}

// Load builds the configuration from defaults, an optional YAML/JSON file,
// POSTER_* environment variables and finally the command line.
// Flags may appear before or after the stream_name and shard_count positionals.
func Load(args []string, output io.Writer) (*PosterConfig, error) {
	cfg := Default()

	fs := flag.NewFlagSet("poster", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Create or attach to a stream and put records in the stream")
		fmt.Fprintln(fs.Output(), "\nusage: poster [flags] stream_name shard_count")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.PartitionKey, "partition_key", cfg.PartitionKey, "the partition key to use when putting records to the stream")
	fs.IntVar(&cfg.PosterCount, "poster_count", cfg.PosterCount, "the number of poster workers")
	fs.IntVar(&cfg.PosterTime, "poster_time", cfg.PosterTime, "how many seconds the posters should put records into the stream")
	fs.BoolVar(&cfg.Quiet, "quiet", cfg.Quiet, "reduce console output to just initialization info")
	fs.BoolVar(&cfg.DeleteStream, "delete_stream", cfg.DeleteStream, "delete the stream matching the given stream_name")
	fs.BoolVar(&cfg.DescribeOnly, "describe_only", cfg.DescribeOnly, "only describe the stream matching the given stream_name")

	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "stream service backend (kinesis|memory)")
	fs.StringVar(&cfg.Region, "region", cfg.Region, "AWS region (defaults to the SDK credential chain)")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "override the Kinesis endpoint, e.g. http://localhost:4566")
	fs.IntVar(&cfg.PollIntervalMS, "poll_interval_ms", cfg.PollIntervalMS, "sleep between status checks while waiting for ACTIVE")
	fs.IntVar(&cfg.MaxCreateAttempts, "max_create_attempts", cfg.MaxCreateAttempts, "status checks before giving up on a new stream (0 = forever)")
	fs.StringVar(&cfg.Compression, "compression", cfg.Compression, "payload compression (none|gzip|snappy|lz4)")
	fs.IntVar(&cfg.MetricsPort, "metrics_port", cfg.MetricsPort, "serve Prometheus metrics on this port (0 = off)")
	fs.Var(&cfg.LogLevel, "log_level", "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.ResultFile, "result_file", cfg.ResultFile, "write the run summary as JSON to this path")
	configPath := fs.String("config", "", "path to a YAML or JSON config file")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return nil, err
	}

	explicit := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if *configPath != "" {
		if err := loadFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return nil, fmt.Errorf("reapply flag -%s: %w", name, err)
		}
	}

	if err := applyPositional(cfg, positional); err != nil {
		return nil, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseInterleaved lets positionals and flags appear in any order.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func applyPositional(cfg *PosterConfig, positional []string) error {
	switch {
	case len(positional) > 2:
		return fmt.Errorf("unexpected arguments: %s", strings.Join(positional[2:], " "))
	case len(positional) == 2:
		n, err := util.ParsePositiveInt("shard_count", positional[1])
		if err != nil {
			return err
		}
		cfg.ShardCount = n
		fallthrough
	case len(positional) == 1:
		cfg.StreamName = positional[0]
	}
	return nil
}

func loadFile(cfg *PosterConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON config %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *PosterConfig) {
	overrideEnvString(&cfg.Backend, "POSTER_BACKEND")
	overrideEnvString(&cfg.Region, "POSTER_REGION")
	overrideEnvString(&cfg.Endpoint, "POSTER_ENDPOINT")
	overrideEnvInt(&cfg.MetricsPort, "POSTER_METRICS_PORT")
	overrideEnvBool(&cfg.Quiet, "POSTER_QUIET")
	if v := os.Getenv("POSTER_LOG_LEVEL"); v != "" {
		if lvl, err := util.ParseLevel(v); err == nil {
			cfg.LogLevel = lvl
		} else {
			util.Warn("ignoring POSTER_LOG_LEVEL: %v", err)
		}
	}
}

func overrideEnvInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseInt(v, *target)
	}
}

func overrideEnvBool(target *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*target = util.ParseBool(v, *target)
	}
}

func overrideEnvString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// Normalize replaces out-of-range values with defaults.
func (cfg *PosterConfig) Normalize() {
	cfg.StreamName = strings.TrimSpace(cfg.StreamName)
	if strings.TrimSpace(cfg.PartitionKey) == "" {
		cfg.PartitionKey = DefaultPartitionKey
	}
	if cfg.PosterCount <= 0 {
		util.Warn("Invalid poster_count (%d), defaulting to 1", cfg.PosterCount)
		cfg.PosterCount = 1
	}
	if cfg.PosterTime < 0 {
		util.Warn("Invalid poster_time (%d), defaulting to 30", cfg.PosterTime)
		cfg.PosterTime = 30
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = BackendKinesis
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = 500
	}
	if cfg.MaxCreateAttempts < 0 {
		cfg.MaxCreateAttempts = 0
	}
	if cfg.MetricsPort < 0 {
		cfg.MetricsPort = 0
	}
	if cfg.DeleteStream && cfg.DescribeOnly {
		util.Warn("both delete_stream and describe_only set, only deleting")
		cfg.DescribeOnly = false
	}
}

// Validate reports configuration errors that have no sensible default.
func (cfg *PosterConfig) Validate() error {
	if cfg.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if cfg.ShardCount < 1 {
		return fmt.Errorf("shard_count is required and must be >= 1")
	}
	switch cfg.Backend {
	case BackendKinesis, BackendMemory:
	default:
		return fmt.Errorf("unsupported backend %q (want kinesis or memory)", cfg.Backend)
	}
	if _, err := payload.ParseCodec(cfg.Compression); err != nil {
		return err
	}
	return nil
}

func (cfg *PosterConfig) Mode() Mode {
	switch {
	case cfg.DeleteStream:
		return ModeDelete
	case cfg.DescribeOnly:
		return ModeDescribe
	default:
		return ModeRun
	}
}

func (cfg *PosterConfig) Codec() payload.Codec {
	codec, _ := payload.ParseCodec(cfg.Compression)
	return codec
}

func (cfg *PosterConfig) PosterDuration() time.Duration {
	return time.Duration(cfg.PosterTime) * time.Second
}

func (cfg *PosterConfig) PollInterval() time.Duration {
	return time.Duration(cfg.PollIntervalMS) * time.Millisecond
}
