// Package task 把一次（可能多步的）异步计算包装成可取消、结果可缓存的任务。
package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"sol-tx-engine/internal/logic/cancel"
	"sol-tx-engine/pkg/logger"
)

// ErrTaskRunning 对运行中的任务再次调用 Run，不会自动重试
var ErrTaskRunning = errors.New("task is already running")

// Func 任务计算体，第一个参数是本次执行的取消作用域，
// 网络调用应使用 s.Context() 并在每次往返后检查取消。
type Func[T any] func(s *cancel.Scope) (T, error)

// Node 任务树中的节点，用于子任务层级
type Node interface {
	Name() string
	Status() Status
	Children() []Node
}

type Option func(o *options)

type options struct {
	name     string
	children []Node
}

func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithChildren(children ...Node) Option {
	return func(o *options) { o.children = children }
}

type RunOption func(o *runOptions)

type runOptions struct {
	force bool
}

// Force 无论当前状态（运行中除外）都重新执行计算
func Force() RunOption {
	return func(o *runOptions) { o.force = true }
}

type Task[T any] struct {
	name string
	fn   Func[T]

	mu       sync.Mutex
	status   Status
	result   T
	err      error
	children []Node
	context  map[string]interface{}

	onStatusChange []func(Status)
	onSuccess      []func(T)
	onFailure      []func(error)
	onCancel       []func(error)
}

func New[T any](fn Func[T], opts ...Option) *Task[T] {
	o := options{name: "task"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Task[T]{
		name:     o.name,
		fn:       fn,
		status:   StatusPending,
		children: o.children,
		context:  make(map[string]interface{}),
	}
}

// Run 执行任务：
//   - running：立即返回 ErrTaskRunning，不影响正在进行的执行
//   - successful 且未 Force：直接返回缓存结果，不重新计算
//   - failed / canceled 且未 Force：返回保存的错误
//   - 其它情况在新的取消作用域中执行计算
func (t *Task[T]) Run(ctx context.Context, opts ...RunOption) (T, error) {
	var zero T
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	t.mu.Lock()
	switch {
	case t.status == StatusRunning:
		t.mu.Unlock()
		return zero, fmt.Errorf("%w: %s", ErrTaskRunning, t.name)
	case t.status == StatusSuccessful && !ro.force:
		result := t.result
		t.mu.Unlock()
		return result, nil
	case (t.status == StatusFailed || t.status == StatusCanceled) && !ro.force:
		err := t.err
		t.mu.Unlock()
		return zero, err
	}
	t.status = StatusRunning
	t.result = zero
	t.err = nil
	t.mu.Unlock()
	t.emitStatus(StatusRunning)

	var result T
	err := cancel.NewToken(ctx).Run(func(s *cancel.Scope) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[Task] %s panic: %v\n%s", t.name, r, debug.Stack())
				err = fmt.Errorf("task %s panic: %v", t.name, r)
			}
		}()
		result, err = t.fn(s)
		return err
	})

	t.mu.Lock()
	switch {
	case err == nil:
		t.status = StatusSuccessful
		t.result = result
	case cancel.IsCanceled(err):
		t.status = StatusCanceled
		t.err = err
	default:
		t.status = StatusFailed
		t.err = err
	}
	status := t.status
	onSuccess := append([]func(T){}, t.onSuccess...)
	onFailure := append([]func(error){}, t.onFailure...)
	onCancel := append([]func(error){}, t.onCancel...)
	t.mu.Unlock()

	t.emitStatus(status)
	switch status {
	case StatusSuccessful:
		for _, fn := range onSuccess {
			fn(result)
		}
		return result, nil
	case StatusCanceled:
		logger.Debugf("[Task] %s canceled: %v", t.name, err)
		for _, fn := range onCancel {
			fn(err)
		}
	default:
		logger.Debugf("[Task] %s failed: %v", t.name, err)
		for _, fn := range onFailure {
			fn(err)
		}
	}
	return zero, err
}

// Reset 终态回到 pending，丢弃结果与错误；运行中调用无效
func (t *Task[T]) Reset() *Task[T] {
	t.mu.Lock()
	if t.status == StatusRunning {
		t.mu.Unlock()
		logger.Warnf("[Task] %s: reset ignored while running", t.name)
		return t
	}
	var zero T
	t.status = StatusPending
	t.result = zero
	t.err = nil
	t.mu.Unlock()
	t.emitStatus(StatusPending)
	return t
}

// LoadWith 不执行计算，直接以 value 作为成功结果，避免重复的网络调用；运行中调用无效
func (t *Task[T]) LoadWith(value T) *Task[T] {
	t.mu.Lock()
	if t.status == StatusRunning {
		t.mu.Unlock()
		logger.Warnf("[Task] %s: loadWith ignored while running", t.name)
		return t
	}
	t.status = StatusSuccessful
	t.result = value
	t.err = nil
	t.mu.Unlock()
	t.emitStatus(StatusSuccessful)
	return t
}

func (t *Task[T]) Name() string {
	return t.name
}

func (t *Task[T]) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result 最近一次成功的结果，非 successful 时为零值
func (t *Task[T]) Result() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *Task[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task[T]) IsPending() bool    { return t.Status() == StatusPending }
func (t *Task[T]) IsRunning() bool    { return t.Status() == StatusRunning }
func (t *Task[T]) IsSuccessful() bool { return t.Status() == StatusSuccessful }
func (t *Task[T]) IsFailed() bool     { return t.Status() == StatusFailed }
func (t *Task[T]) IsCanceled() bool   { return t.Status() == StatusCanceled }
func (t *Task[T]) IsSettled() bool    { return t.Status().IsSettled() }

func (t *Task[T]) SetChildren(children ...Node) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.children = children
	return t
}

func (t *Task[T]) Children() []Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Node(nil), t.children...)
}

// Descendants 深度优先展开所有子孙任务
func (t *Task[T]) Descendants() []Node {
	return descendants(t)
}

func descendants(n Node) []Node {
	var out []Node
	for _, child := range n.Children() {
		out = append(out, child)
		out = append(out, descendants(child)...)
	}
	return out
}

func (t *Task[T]) SetContext(key string, value interface{}) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.context[key] = value
	return t
}

func (t *Task[T]) GetContext(key string) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.context[key]
	return v, ok
}

// Context 返回上下文副本
func (t *Task[T]) Context() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]interface{}, len(t.context))
	for k, v := range t.context {
		out[k] = v
	}
	return out
}

// 以下回调只是通知，按注册顺序同步调用，不影响 Run 的返回值

func (t *Task[T]) OnStatusChange(fn func(Status)) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStatusChange = append(t.onStatusChange, fn)
	return t
}

func (t *Task[T]) OnSuccess(fn func(T)) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSuccess = append(t.onSuccess, fn)
	return t
}

func (t *Task[T]) OnFailure(fn func(error)) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFailure = append(t.onFailure, fn)
	return t
}

func (t *Task[T]) OnCancel(fn func(error)) *Task[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCancel = append(t.onCancel, fn)
	return t
}

func (t *Task[T]) emitStatus(s Status) {
	t.mu.Lock()
	listeners := append([]func(Status){}, t.onStatusChange...)
	t.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
