package task

// Status 任务状态：pending → running → successful | failed | canceled
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccessful
	StatusFailed
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccessful:
		return "successful"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// IsSettled 是否为终态
func (s Status) IsSettled() bool {
	return s == StatusSuccessful || s == StatusFailed || s == StatusCanceled
}
