package progress

import (
	"time"

	"sol-tx-engine/internal/provider"
)

// Redis key 前缀
const submissionPrefix = "txengine:submission"

// 每种状态的 TTL（可调）
const (
	pendingTTL   = 10 * time.Minute
	confirmedTTL = 7 * 24 * time.Hour
	failedTTL    = 3 * 24 * time.Hour
	defaultTTL   = 24 * time.Hour
)

// Hash 字段名
const (
	fieldStatus       = "status"
	fieldSlot         = "slot"
	fieldCommitment   = "commitment"
	fieldInstructions = "instructions"
	fieldErr          = "err"
	fieldAt           = "at"
)

func getKey(signature string) string {
	return submissionPrefix + ":" + signature
}

func getTTL(status provider.SubmissionStatus) time.Duration {
	switch status {
	case provider.SubmissionPending:
		return pendingTTL
	case provider.SubmissionConfirmed:
		return confirmedTTL
	case provider.SubmissionFailed:
		return failedTTL
	default:
		return defaultTTL
	}
}
