package svc

import (
	"context"
	"fmt"
	"time"

	"sol-tx-engine/internal/config"
	"sol-tx-engine/internal/logic/batchfetch"
	"sol-tx-engine/internal/logic/progress"
	"sol-tx-engine/internal/logic/txbuilder"
	"sol-tx-engine/internal/mq"
	"sol-tx-engine/internal/provider"
	"sol-tx-engine/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
)

// ServiceContext 包含命令执行所需的全部资源
type ServiceContext struct {
	Config    config.Config
	RpcClient *client.Client
	Submitter *provider.RpcSubmitter
	Accounts  *provider.RpcAccountProvider
	Payer     txbuilder.Signer // 未配置钱包时为 nil

	Redis    *redis.Client
	Producer *kafka.Producer
}

// NewServiceContext 按配置装配 provider 与可选的提交记录器（Redis / Kafka）
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	ctx := &ServiceContext{
		Config:    c,
		RpcClient: client.NewClient(c.RpcConf.Endpoint),
	}

	var recorders []provider.SubmissionRecorder

	// 1. Redis 提交状态
	if c.RedisAddr != "" {
		ctx.Redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := ctx.Redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			ctx.Close()
			return nil, fmt.Errorf("redis ping %s: %w", c.RedisAddr, err)
		}
		recorders = append(recorders, progress.NewSubmissionStore(ctx.Redis))
	}

	// 2. Kafka 提交事件
	if c.KafkaProducerConf.Enabled() {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			logger.Errorf("[ServiceContext] Kafka producer 初始化失败: %v", err)
			ctx.Close()
			return nil, err
		}
		ctx.Producer = producer
		recorders = append(recorders, mq.NewSubmissionPublisher(
			producer,
			c.KafkaProducerConf.Topic,
			c.KafkaProducerConf.Partitions,
			c.KafkaProducerConf.SendTimeout(),
		))
	}

	// 3. 付款钱包
	if c.WalletConf.KeypairPath != "" {
		account, err := config.LoadKeypair(c.WalletConf.KeypairPath)
		if err != nil {
			ctx.Close()
			return nil, err
		}
		ctx.Payer = txbuilder.NewKeypairSigner(account)
	}

	ctx.Submitter = provider.NewRpcSubmitter(ctx.RpcClient,
		provider.WithDefaultCommitment(provider.ParseCommitment(c.RpcConf.Commitment, rpc.CommitmentConfirmed)),
		provider.WithConfirmTimeout(c.RpcConf.ConfirmTimeout()),
		provider.WithPollInterval(c.RpcConf.PollInterval()),
		provider.WithRecorders(recorders...),
	)
	ctx.Accounts = provider.NewRpcAccountProvider(ctx.RpcClient, c.RpcConf.RequestTimeout())

	logger.Infof("[ServiceContext] 初始化完成: endpoint=%s, recorders=%d, payer=%v",
		c.RpcConf.Endpoint, len(recorders), ctx.Payer != nil)
	return ctx, nil
}

// ConfirmOptions 默认提交选项
func (ctx *ServiceContext) ConfirmOptions() txbuilder.ConfirmOptions {
	return txbuilder.ConfirmOptions{
		Commitment:    provider.ParseCommitment(ctx.Config.RpcConf.Commitment, rpc.CommitmentConfirmed),
		SkipPreflight: ctx.Config.RpcConf.SkipPreflight,
		MaxRetries:    ctx.Config.RpcConf.MaxRetries,
		Timeout:       ctx.Config.RpcConf.ConfirmTimeout(),
	}
}

// FetchOptions 批量读取选项
func (ctx *ServiceContext) FetchOptions() []batchfetch.Option {
	return []batchfetch.Option{
		batchfetch.WithChunkSize(ctx.Config.FetchConf.ChunkSize),
		batchfetch.WithCommitment(provider.ParseCommitment(ctx.Config.FetchConf.Commitment, rpc.CommitmentConfirmed)),
	}
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	if ctx.Producer != nil {
		ctx.Producer.Flush(3000)
		ctx.Producer.Close()
	}
	if ctx.Redis != nil {
		_ = ctx.Redis.Close()
	}
	logger.Sync()
}
