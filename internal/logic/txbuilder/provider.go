package txbuilder

import (
	"context"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
)

// Compiler provider 提交时用最新 blockhash 编译交易
type Compiler interface {
	ToTransaction(recentBlockhash string) (types.Transaction, error)
	InstructionCount() int
}

// SubmissionProvider 提交并确认交易。
// 实现需把“提交被拒绝”“确认超时”等失败区分为不同错误类型。
type SubmissionProvider interface {
	SendAndConfirmTransaction(ctx context.Context, tx Compiler, opts ConfirmOptions) (SendResponse, error)
}

// ConfirmOptions 零值字段由 provider 使用默认值
type ConfirmOptions struct {
	Commitment    rpc.Commitment
	SkipPreflight bool
	MaxRetries    uint64
	Timeout       time.Duration
}

type SendResponse struct {
	Signature          string
	Slot               uint64
	ConfirmationStatus rpc.Commitment
}
