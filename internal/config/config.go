package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = "127.0.0.1:8080"
	DefaultGatewayURL    = "http://127.0.0.1:9011"
	DefaultChunkSize     = 64 * 1024
	DefaultChunkTimeout  = "60s"
	DefaultAITimeout     = "300s"
	DefaultAIProvider    = "openai"
	DefaultAITemperature = 0.7
	DefaultDownloadDir   = "downloads"
	DefaultRetention     = "168h"
	DefaultCleanupCron   = "@daily"
	DefaultDedupTTL      = "10m"
	DefaultSumTrigger    = "/总结"
	DefaultAMQPQueue     = "filesummary.inbound"
	DefaultVertexRegion  = "us-central1"
	PartialPolicySummary = "summarize"
	PartialPolicyReject  = "reject"
	CollisionOverwrite   = "overwrite"
	CollisionSuffix      = "suffix"
)

// DefaultPrompt is the system instruction sent with every document.
const DefaultPrompt = "请对以下文档内容进行全面总结，要求：\n" +
	"- 提炼出文档中的主要观点和核心内容。\n" +
	"- 梳理出文档的结构层次、章节要点。\n" +
	"- 突出关键结论、重要数据、建议或行动项（如有）。\n" +
	"- 保持总结简洁清晰、逻辑性强，方便阅读。\n" +
	"- 语言风格保持正式、客观、中立。\n\n" +
	"需要输出两部分：\n" +
	"1️⃣ 简明摘要（100-300字）\n" +
	"2️⃣ 详细分段总结（按文档结构，逐段列出要点）"

type Config struct {
	Log     LogConfig     `toml:"log" yaml:"log"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Plugin  PluginConfig  `toml:"plugin" yaml:"plugin"`
	Gateway GatewayConfig `toml:"gateway" yaml:"gateway"`
	AI      AIConfig      `toml:"ai" yaml:"ai"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Redis   RedisConfig   `toml:"redis" yaml:"redis"`
	AMQP    AMQPConfig    `toml:"amqp" yaml:"amqp"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" yaml:"format" validate:"oneof=text json"`
}

// ServerConfig controls the HTTP listener. AdminToken, when set, is required
// as a bearer token on the files API.
type ServerConfig struct {
	Addr       string `toml:"addr" yaml:"addr" validate:"required"`
	AdminToken string `toml:"admin_token" yaml:"admin_token"`
}

// PluginConfig holds the behavior switches of the file summary plugin.
// With AutoSum off, files are saved and acknowledged without a summary.
type PluginConfig struct {
	Enable         bool   `toml:"enable" yaml:"enable"`
	AutoSum        bool   `toml:"auto_sum" yaml:"auto_sum"`
	SumTrigger     string `toml:"sum_trigger" yaml:"sum_trigger"`
	GroupEnabled   bool   `toml:"group_enabled" yaml:"group_enabled"`
	NotifyFailures bool   `toml:"notify_failures" yaml:"notify_failures"`
	PartialPolicy  string `toml:"partial_policy" yaml:"partial_policy" validate:"oneof=summarize reject"`
}

// SummaryTriggers expands the configured trigger into the accepted variants.
func (c PluginConfig) SummaryTriggers() []string {
	t := strings.TrimSpace(c.SumTrigger)
	if t == "" {
		t = DefaultSumTrigger
	}
	return []string{
		t,
		t + "链接",
		t + "内容",
		t + "一下",
		"帮我" + t,
		"summarize",
	}
}

// GatewayConfig points at the local WeChat gateway serving blobs and replies.
type GatewayConfig struct {
	BaseURL      string `toml:"base_url" yaml:"base_url" validate:"required,url"`
	Wxid         string `toml:"wxid" yaml:"wxid"`
	ChunkSize    int64  `toml:"chunk_size" yaml:"chunk_size" validate:"gt=0"`
	ChunkTimeout string `toml:"chunk_timeout" yaml:"chunk_timeout"`
}

func (c GatewayConfig) ChunkTimeoutDuration() time.Duration {
	return parseDuration(c.ChunkTimeout, 60*time.Second)
}

type AIConfig struct {
	Enable        bool    `toml:"enable" yaml:"enable"`
	Provider      string  `toml:"provider" yaml:"provider" validate:"oneof=openai vertex"`
	APIKey        string  `toml:"api_key" yaml:"api_key"`
	BaseURL       string  `toml:"base_url" yaml:"base_url"`
	Model         string  `toml:"model" yaml:"model"`
	HTTPProxy     string  `toml:"http_proxy" yaml:"http_proxy"`
	Prompt        string  `toml:"prompt" yaml:"prompt"`
	Temperature   float32 `toml:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	Timeout       string  `toml:"timeout" yaml:"timeout"`
	VertexProject string  `toml:"vertex_project" yaml:"vertex_project"`
	VertexRegion  string  `toml:"vertex_region" yaml:"vertex_region"`
}

func (c AIConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 300*time.Second)
}

// Ready reports whether summarization can be attempted with this config.
func (c AIConfig) Ready() bool {
	if !c.Enable {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "vertex":
		return strings.TrimSpace(c.VertexProject) != "" && strings.TrimSpace(c.Model) != ""
	default:
		return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.BaseURL) != ""
	}
}

type StorageConfig struct {
	DownloadDir string `toml:"download_dir" yaml:"download_dir" validate:"required"`
	OnCollision string `toml:"on_collision" yaml:"on_collision" validate:"oneof=overwrite suffix"`
	Retention   string `toml:"retention" yaml:"retention"`
	CleanupCron string `toml:"cleanup_cron" yaml:"cleanup_cron"`
}

// RetentionDuration returns 0 when retention is disabled.
func (c StorageConfig) RetentionDuration() time.Duration {
	return parseDuration(c.Retention, 0)
}

type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`
	DedupTTL string `toml:"dedup_ttl" yaml:"dedup_ttl"`
}

func (c RedisConfig) DedupTTLDuration() time.Duration {
	return parseDuration(c.DedupTTL, 10*time.Minute)
}

type AMQPConfig struct {
	URL      string `toml:"url" yaml:"url"`
	Queue    string `toml:"queue" yaml:"queue"`
	Prefetch int    `toml:"prefetch" yaml:"prefetch" validate:"gte=0"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Plugin: PluginConfig{
			Enable:        true,
			AutoSum:       true,
			SumTrigger:    DefaultSumTrigger,
			PartialPolicy: PartialPolicySummary,
		},
		Gateway: GatewayConfig{
			BaseURL:      DefaultGatewayURL,
			ChunkSize:    DefaultChunkSize,
			ChunkTimeout: DefaultChunkTimeout,
		},
		AI: AIConfig{
			Provider:     DefaultAIProvider,
			Prompt:       DefaultPrompt,
			Temperature:  DefaultAITemperature,
			Timeout:      DefaultAITimeout,
			VertexRegion: DefaultVertexRegion,
		},
		Storage: StorageConfig{
			DownloadDir: DefaultDownloadDir,
			OnCollision: CollisionSuffix,
			Retention:   DefaultRetention,
			CleanupCron: DefaultCleanupCron,
		},
		Redis: RedisConfig{
			DedupTTL: DefaultDedupTTL,
		},
		AMQP: AMQPConfig{
			Queue:    DefaultAMQPQueue,
			Prefetch: 1,
		},
	}
}

// Load reads a TOML or YAML config file over the defaults. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode toml config: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and duration syntax.
func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	durations := map[string]string{
		"gateway.chunk_timeout": cfg.Gateway.ChunkTimeout,
		"ai.timeout":            cfg.AI.Timeout,
		"storage.retention":     cfg.Storage.Retention,
		"redis.dedup_ttl":       cfg.Redis.DedupTTL,
	}
	for key, raw := range durations {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", key, err)
		}
	}
	return nil
}

// WarnIncomplete logs and disables summarization when the AI section cannot
// be used, leaving downloads working.
func WarnIncomplete(log *slog.Logger, cfg *Config) {
	if cfg.AI.Enable && !cfg.AI.Ready() {
		if log != nil {
			log.Warn("ai config incomplete, summarization disabled", slog.String("provider", cfg.AI.Provider))
		}
		cfg.AI.Enable = false
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
