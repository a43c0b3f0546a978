package provider

import (
	"context"
	"time"
)

// SubmissionStatus 提交记录状态
type SubmissionStatus int

const (
	SubmissionPending   SubmissionStatus = 1 // 已发送，等待确认
	SubmissionConfirmed SubmissionStatus = 2 // 达到要求的确认级别
	SubmissionFailed    SubmissionStatus = 3 // 链上执行失败或确认超时
)

func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionPending:
		return "pending"
	case SubmissionConfirmed:
		return "confirmed"
	case SubmissionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type SubmissionRecord struct {
	Signature    string
	Status       SubmissionStatus
	Slot         uint64
	Commitment   string
	Instructions int
	Err          string
	At           time.Time
}

// SubmissionRecorder 提交过程的旁路记录（Redis、Kafka 等），失败只记日志
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
}
