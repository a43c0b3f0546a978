package config

import (
	"fmt"
	"os"
	"time"

	"sol-tx-engine/internal/mq"
	"sol-tx-engine/pkg/logger"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RpcConfig Solana JSON-RPC 及提交确认相关配置
type RpcConfig struct {
	Endpoint         string `yaml:"endpoint"`           // RPC 地址，例如 https://api.devnet.solana.com
	Commitment       string `yaml:"commitment"`         // 默认确认级别：processed / confirmed / finalized
	ConfirmTimeoutMs int    `yaml:"confirm_timeout_ms"` // 等待确认的最长时间（毫秒）
	PollIntervalMs   int    `yaml:"poll_interval_ms"`   // 轮询签名状态的间隔（毫秒）
	RequestTimeoutMs int    `yaml:"request_timeout_ms"` // 单次账户查询超时（毫秒）
	SkipPreflight    bool   `yaml:"skip_preflight"`     // 发送时跳过预检
	MaxRetries       uint64 `yaml:"max_retries"`        // 节点侧重发次数，0 表示使用节点默认值
}

func (c *RpcConfig) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutMs) * time.Millisecond
}

func (c *RpcConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *RpcConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// FetchConfig 批量账户读取配置
type FetchConfig struct {
	ChunkSize  int    `yaml:"chunk_size"` // 每次 getMultipleAccounts 的地址数，上限 100
	Commitment string `yaml:"commitment"` // 读取使用的确认级别
}

// WalletConfig 付款钱包
type WalletConfig struct {
	KeypairPath string `yaml:"keypair_path"` // Solana CLI 格式的密钥文件（64 个整数的 JSON 数组）
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置，Brokers 为空时不发布提交事件
type KafkaProducerConfig struct {
	Brokers       string `yaml:"brokers"`         // Kafka broker 地址，多个用英文逗号分隔
	BatchSize     int    `yaml:"batch_size"`      // 批处理大小（单位字节）
	LingerMs      int    `yaml:"linger_ms"`       // 批处理最大延迟（毫秒）
	Topic         string `yaml:"topic"`           // 提交事件 topic
	Partitions    int    `yaml:"partitions"`      // topic 分区数
	SendTimeoutMs int    `yaml:"send_timeout_ms"` // 单条事件发送到 Kafka 并等待 ack 的超时时间
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:    c.Brokers,
		BatchSize:  c.BatchSize,
		LingerMs:   c.LingerMs,
		Topic:      c.Topic,
		Partitions: c.Partitions,
	}
}

func (c *KafkaProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

func (c *KafkaProducerConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMs) * time.Millisecond
}

// Config 主配置结构体
type Config struct {
	LogConf           LogConfig           `yaml:"logger"`         // 日志配置
	RpcConf           RpcConfig           `yaml:"rpc"`            // RPC 配置
	FetchConf         FetchConfig         `yaml:"fetch"`          // 批量读取配置
	WalletConf        WalletConfig        `yaml:"wallet"`         // 钱包配置
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"` // Kafka 生产者配置（可选）

	RedisAddr string `yaml:"redis_addr"` // Redis 地址（可选），用于记录提交状态
}

// Load 读取并解析 YAML 配置，缺省字段填默认值
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return c, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

func MustLoad(path string) Config {
	c, err := Load(path)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Config) applyDefaults() {
	if c.LogConf.Format == "" {
		c.LogConf.Format = "console"
	}
	if c.LogConf.Level == "" {
		c.LogConf.Level = "info"
	}
	if c.RpcConf.Commitment == "" {
		c.RpcConf.Commitment = "confirmed"
	}
	if c.RpcConf.ConfirmTimeoutMs <= 0 {
		c.RpcConf.ConfirmTimeoutMs = 60_000
	}
	if c.RpcConf.PollIntervalMs <= 0 {
		c.RpcConf.PollIntervalMs = 500
	}
	if c.RpcConf.RequestTimeoutMs <= 0 {
		c.RpcConf.RequestTimeoutMs = 10_000
	}
	if c.FetchConf.ChunkSize <= 0 || c.FetchConf.ChunkSize > 100 {
		c.FetchConf.ChunkSize = 100
	}
	if c.FetchConf.Commitment == "" {
		c.FetchConf.Commitment = c.RpcConf.Commitment
	}
	if c.KafkaProducerConf.Topic == "" {
		c.KafkaProducerConf.Topic = "tx_submission"
	}
	if c.KafkaProducerConf.Partitions <= 0 {
		c.KafkaProducerConf.Partitions = 1
	}
	if c.KafkaProducerConf.SendTimeoutMs <= 0 {
		c.KafkaProducerConf.SendTimeoutMs = 3000
	}
}

func (c *Config) validate() error {
	if c.RpcConf.Endpoint == "" {
		return fmt.Errorf("rpc.endpoint is required")
	}
	switch c.RpcConf.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("rpc.commitment %q is not one of processed/confirmed/finalized", c.RpcConf.Commitment)
	}
	return nil
}
