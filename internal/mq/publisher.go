package mq

import (
	"context"
	"fmt"
	"time"

	"sol-tx-engine/internal/pkg/types"
	"sol-tx-engine/internal/pkg/utils"
	"sol-tx-engine/internal/provider"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"google.golang.org/protobuf/types/known/structpb"
)

const defaultSendTimeout = 3 * time.Second

// SubmissionPublisher 把提交状态变化发布到 Kafka，同一签名固定落在同一分区
type SubmissionPublisher struct {
	producer   *kafka.Producer
	topic      string
	partitions int
	timeout    time.Duration
}

func NewSubmissionPublisher(producer *kafka.Producer, topic string, partitions int, timeout time.Duration) *SubmissionPublisher {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &SubmissionPublisher{
		producer:   producer,
		topic:      topic,
		partitions: partitions,
		timeout:    timeout,
	}
}

func (p *SubmissionPublisher) RecordSubmission(ctx context.Context, rec provider.SubmissionRecord) error {
	job, err := buildSubmissionJob(p.topic, p.partitions, rec)
	if err != nil {
		return err
	}
	_, failed := SendKafkaJobs(ctx, p.producer, []*KafkaJob{job}, p.timeout)
	if len(failed) > 0 {
		return fmt.Errorf("publish submission %s: %w", rec.Signature, failed[0].Err)
	}
	return nil
}

// buildSubmissionJob 事件类型前缀为提交状态，消息体为 protobuf Struct
func buildSubmissionJob(topic string, partitions int, rec provider.SubmissionRecord) (*KafkaJob, error) {
	body, err := structpb.NewStruct(map[string]interface{}{
		"signature":    rec.Signature,
		"status":       rec.Status.String(),
		"slot":         float64(rec.Slot),
		"commitment":   rec.Commitment,
		"instructions": float64(rec.Instructions),
		"err":          rec.Err,
		"at":           float64(rec.At.UnixMilli()),
	})
	if err != nil {
		return nil, fmt.Errorf("build submission event: %w", err)
	}
	value, err := utils.EncodeEvent(uint32(rec.Status), body)
	if err != nil {
		return nil, err
	}

	partition := kafka.PartitionAny
	if sig, err := types.SignatureFromBase58(rec.Signature); err == nil && partitions > 0 {
		partition = int32(utils.PartitionHashBytes(sig[:], uint32(partitions)))
	}
	return &KafkaJob{
		Topic:     topic,
		Partition: partition,
		Key:       []byte(rec.Signature),
		Value:     value,
	}, nil
}
