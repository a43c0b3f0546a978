package provider

import (
	"context"
	"fmt"
	"time"

	"sol-tx-engine/internal/logic/txbuilder"
	"sol-tx-engine/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
)

const (
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
)

type submissionClient interface {
	GetLatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
	SendTransactionWithConfig(ctx context.Context, tx types.Transaction, cfg client.SendTransactionConfig) (string, error)
	GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
	GetBlockHeight(ctx context.Context) (uint64, error)
}

type SubmitterOption func(s *RpcSubmitter)

func WithDefaultCommitment(c rpc.Commitment) SubmitterOption {
	return func(s *RpcSubmitter) { s.commitment = c }
}

func WithConfirmTimeout(d time.Duration) SubmitterOption {
	return func(s *RpcSubmitter) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithPollInterval(d time.Duration) SubmitterOption {
	return func(s *RpcSubmitter) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithRecorders(recorders ...SubmissionRecorder) SubmitterOption {
	return func(s *RpcSubmitter) { s.recorders = append(s.recorders, recorders...) }
}

// RpcSubmitter 通过 JSON-RPC 提交交易并轮询确认状态
type RpcSubmitter struct {
	client       submissionClient
	commitment   rpc.Commitment
	timeout      time.Duration
	pollInterval time.Duration
	recorders    []SubmissionRecorder
}

func NewRpcSubmitter(c submissionClient, opts ...SubmitterOption) *RpcSubmitter {
	s := &RpcSubmitter{
		client:       c,
		commitment:   rpc.CommitmentConfirmed,
		timeout:      defaultConfirmTimeout,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendAndConfirmTransaction 最新 blockhash → 编译签名 → 发送 → 轮询确认
func (s *RpcSubmitter) SendAndConfirmTransaction(ctx context.Context, tx txbuilder.Compiler, opts txbuilder.ConfirmOptions) (txbuilder.SendResponse, error) {
	commitment := opts.Commitment
	if commitment == "" {
		commitment = s.commitment
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}

	latest, err := s.client.GetLatestBlockhash(ctx)
	if err != nil {
		return txbuilder.SendResponse{}, fmt.Errorf("get latest blockhash: %w", err)
	}

	transaction, err := tx.ToTransaction(latest.Blockhash)
	if err != nil {
		return txbuilder.SendResponse{}, err
	}

	signature, err := s.client.SendTransactionWithConfig(ctx, transaction, client.SendTransactionConfig{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: commitment,
		MaxRetries:          opts.MaxRetries,
	})
	if err != nil {
		return txbuilder.SendResponse{}, fmt.Errorf("%w: %w", ErrSubmissionRejected, err)
	}
	logger.Infof("[RpcSubmitter] 交易已发送: sig=%s, 指令数: %d", signature, tx.InstructionCount())
	s.record(ctx, SubmissionRecord{
		Signature:    signature,
		Status:       SubmissionPending,
		Commitment:   string(commitment),
		Instructions: tx.InstructionCount(),
	})

	resp, err := s.waitForConfirmation(ctx, signature, commitment, timeout, latest.LatestValidBlockHeight)
	rec := SubmissionRecord{
		Signature:    signature,
		Slot:         resp.Slot,
		Commitment:   string(commitment),
		Instructions: tx.InstructionCount(),
	}
	switch {
	case err == nil:
		rec.Status = SubmissionConfirmed
		s.record(ctx, rec)
	case ctx.Err() == nil:
		rec.Status = SubmissionFailed
		rec.Err = err.Error()
		s.record(ctx, rec)
	}
	return resp, err
}

func (s *RpcSubmitter) waitForConfirmation(
	ctx context.Context,
	signature string,
	want rpc.Commitment,
	timeout time.Duration,
	lastValidHeight uint64,
) (txbuilder.SendResponse, error) {
	resp := txbuilder.SendResponse{Signature: signature}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, err := s.client.GetSignatureStatus(ctx, signature)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return resp, ctx.Err()
			}
			logger.Warnf("[RpcSubmitter] 查询签名状态失败: sig=%s err=%v", signature, err)
		case status != nil:
			resp.Slot = status.Slot
			if status.Err != nil {
				return resp, fmt.Errorf("%w: sig=%s err=%v", ErrTransactionFailed, signature, status.Err)
			}
			if status.ConfirmationStatus != nil {
				resp.ConfirmationStatus = *status.ConfirmationStatus
				if reached(*status.ConfirmationStatus, want) {
					logger.Infof("[RpcSubmitter] 交易确认: sig=%s slot=%d status=%s", signature, status.Slot, resp.ConfirmationStatus)
					return resp, nil
				}
			}
		default:
			// 签名未知：blockhash 过期后交易不可能再上链
			if lastValidHeight > 0 {
				height, herr := s.client.GetBlockHeight(ctx)
				if herr == nil && height > lastValidHeight {
					return resp, fmt.Errorf("%w: sig=%s blockhash expired at height %d", ErrConfirmationTimeout, signature, lastValidHeight)
				}
			}
		}

		select {
		case <-ctx.Done():
			return resp, ctx.Err()
		case <-deadline.C:
			return resp, fmt.Errorf("%w: sig=%s after %v", ErrConfirmationTimeout, signature, timeout)
		case <-ticker.C:
		}
	}
}

func (s *RpcSubmitter) record(ctx context.Context, rec SubmissionRecord) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	for _, r := range s.recorders {
		if err := r.RecordSubmission(ctx, rec); err != nil {
			logger.Warnf("[RpcSubmitter] 记录提交状态失败: sig=%s status=%s err=%v", rec.Signature, rec.Status, err)
		}
	}
}
