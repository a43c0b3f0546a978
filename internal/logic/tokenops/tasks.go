package tokenops

import (
	"sol-tx-engine/internal/logic/cancel"
	"sol-tx-engine/internal/logic/task"
	"sol-tx-engine/internal/logic/txbuilder"
)

// SendTask 把一次提交包装成可观察、可记忆结果的任务
func SendTask[C any](name string, b *txbuilder.Builder[C], provider txbuilder.SubmissionProvider, opts txbuilder.ConfirmOptions) *task.Task[txbuilder.Result[C]] {
	t := task.New(func(s *cancel.Scope) (txbuilder.Result[C], error) {
		return b.SendAndConfirm(s.Context(), provider, opts)
	}, task.WithName(name))
	t.SetContext("instructions", b.InstructionCount())
	return t
}
