// Package cancel 提供协作式取消：Token 包装外部取消信号（context），
// Scope 在一次执行内暴露非阻塞的取消检查与清理回调。
// 引擎无法抢占计算，计算本身必须在每次网络往返后检查 Scope。
package cancel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCanceled 取消类错误，通过 errors.Is 识别
var ErrCanceled = errors.New("operation canceled")

// Token 包装一个外部取消信号
type Token struct {
	ctx context.Context
}

func NewToken(ctx context.Context) *Token {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Token{ctx: ctx}
}

// IsCanceled 非阻塞检查信号是否已触发
func (t *Token) IsCanceled() bool {
	return t.ctx.Err() != nil
}

// Run 在新的 Scope 中执行 fn。fn 返回后若信号已触发，
// 清理回调在 Run 返回之前同步执行（按注册顺序，仅一次）。
func (t *Token) Run(fn func(s *Scope) error) error {
	s := newScope(t.ctx)
	err := fn(s)
	if s.IsCanceled() {
		s.fireCleanups()
		if err == nil || !IsCanceled(err) {
			// 信号已触发但计算没有主动检查：结果一律按取消处理
			return s.canceledError()
		}
	}
	return err
}

// Scope 一次执行的取消作用域
type Scope struct {
	ctx context.Context

	mu       sync.Mutex
	cleanups []func()
	fired    bool

	// 并发的触发方都要等到清理全部执行完才返回
	cleanupOnce sync.Once
}

type scopeKey struct{}

func newScope(parent context.Context) *Scope {
	s := &Scope{}
	s.ctx = context.WithValue(parent, scopeKey{}, s)
	return s
}

// FromContext 取出 ctx 所属的 Scope，不在任何 Scope 中时返回 nil
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Context 返回携带本 Scope 的 context，传给 provider 调用即可让其感知取消
func (s *Scope) Context() context.Context {
	return s.ctx
}

func (s *Scope) IsCanceled() bool {
	return s.ctx.Err() != nil
}

// ThrowIfCanceled 信号已触发时返回取消错误并执行清理回调
func (s *Scope) ThrowIfCanceled() error {
	if !s.IsCanceled() {
		return nil
	}
	s.fireCleanups()
	return s.canceledError()
}

// OnCancel 注册清理回调。若已经触发过清理，回调立即执行。
func (s *Scope) OnCancel(fn func()) {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
	s.mu.Unlock()
}

// fireCleanups 只执行一次；其它 goroutine 同时调用时阻塞到清理完成。
// 清理回调内不能再调用 ThrowIfCanceled。
func (s *Scope) fireCleanups() {
	s.cleanupOnce.Do(func() {
		s.mu.Lock()
		s.fired = true
		cleanups := s.cleanups
		s.cleanups = nil
		s.mu.Unlock()

		for _, fn := range cleanups {
			fn()
		}
	})
}

func (s *Scope) canceledError() error {
	return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(s.ctx))
}

// IsCanceled 判断 err 是否为取消类错误
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Call 包装一次 provider 调用：调用前后各检查一次取消信号。
// ctx 属于某个 Scope 时通过该 Scope 检查（会触发清理回调）。
func Call[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := check(ctx); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	if cerr := check(ctx); cerr != nil {
		return zero, cerr
	}
	return v, err
}

func check(ctx context.Context) error {
	if s := FromContext(ctx); s != nil {
		return s.ThrowIfCanceled()
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
	}
	return nil
}
