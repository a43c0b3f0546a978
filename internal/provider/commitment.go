package provider

import "github.com/blocto/solana-go-sdk/rpc"

func commitmentRank(c rpc.Commitment) int {
	switch c {
	case rpc.CommitmentProcessed:
		return 1
	case rpc.CommitmentConfirmed:
		return 2
	case rpc.CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// reached 当前确认级别是否已达到 want（processed < confirmed < finalized）
func reached(current, want rpc.Commitment) bool {
	return commitmentRank(current) >= commitmentRank(want)
}

// ParseCommitment 配置里的字符串转为 rpc.Commitment，未知值返回 fallback
func ParseCommitment(s string, fallback rpc.Commitment) rpc.Commitment {
	switch rpc.Commitment(s) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return rpc.Commitment(s)
	default:
		return fallback
	}
}
