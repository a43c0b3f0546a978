package progress

import (
	"context"
	"fmt"
	"strconv"

	"sol-tx-engine/internal/provider"

	"github.com/redis/go-redis/v9"
)

// SubmissionStore 在 Redis 中记录每笔交易的提交状态，按签名查询
type SubmissionStore struct {
	rdb redis.Cmdable
}

func NewSubmissionStore(rdb redis.Cmdable) *SubmissionStore {
	return &SubmissionStore{rdb: rdb}
}

// RecordSubmission 写入状态并按状态刷新 TTL
func (s *SubmissionStore) RecordSubmission(ctx context.Context, rec provider.SubmissionRecord) error {
	key := getKey(rec.Signature)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldStatus, int(rec.Status),
			fieldSlot, rec.Slot,
			fieldCommitment, rec.Commitment,
			fieldInstructions, rec.Instructions,
			fieldErr, rec.Err,
			fieldAt, rec.At.UnixMilli(),
		)
		pipe.Expire(ctx, key, getTTL(rec.Status))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record submission %s: %w", rec.Signature, err)
	}
	return nil
}

// GetStatus 查询签名的提交状态，不存在时返回 0
func (s *SubmissionStore) GetStatus(ctx context.Context, signature string) (provider.SubmissionStatus, error) {
	val, err := s.rdb.HGet(ctx, getKey(signature), fieldStatus).Result()
	switch {
	case err == redis.Nil:
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("redis get error: %w", err)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, nil // 容错处理
	}
	return provider.SubmissionStatus(n), nil
}
