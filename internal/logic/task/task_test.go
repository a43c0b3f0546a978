package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-tx-engine/internal/logic/cancel"
)

// counting 返回一个计数 stub，每次调用返回递增值
func counting(calls *int32) Func[int] {
	return func(s *cancel.Scope) (int, error) {
		return int(atomic.AddInt32(calls, 1)), nil
	}
}

func TestRunMemoizes(t *testing.T) {
	var calls int32
	tk := New(counting(&calls), WithName("fetch"))
	assert.True(t, tk.IsPending())

	v, err := tk.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.True(t, tk.IsSuccessful())

	v, err = tk.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v, "第二次非强制执行返回缓存结果")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	v, err = tk.Run(context.Background(), Force())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRunFailure(t *testing.T) {
	boom := errors.New("boom")
	var calls int32
	tk := New(func(s *cancel.Scope) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", boom
	})

	_, err := tk.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, tk.IsFailed())
	assert.ErrorIs(t, tk.Err(), boom)

	// 未强制时直接返回保存的错误
	_, err = tk.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = tk.Run(context.Background(), Force())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRunPanicRecordedAsFailure(t *testing.T) {
	tk := New(func(s *cancel.Scope) (int, error) {
		panic("kaboom")
	})
	_, err := tk.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.True(t, tk.IsFailed())
}

func TestRunReentrancy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	tk := New(func(s *cancel.Scope) (int, error) {
		close(started)
		<-release
		return 42, nil
	})

	done := make(chan int)
	go func() {
		v, _ := tk.Run(context.Background())
		done <- v
	}()
	<-started

	_, err := tk.Run(context.Background())
	assert.ErrorIs(t, err, ErrTaskRunning)
	_, err = tk.Run(context.Background(), Force())
	assert.ErrorIs(t, err, ErrTaskRunning)
	assert.True(t, tk.IsRunning())

	close(release)
	assert.Equal(t, 42, <-done, "重入请求不影响正在进行的执行")
	assert.True(t, tk.IsSuccessful())
}

func TestRunCancellation(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	var cleaned bool
	tk := New(func(s *cancel.Scope) (int, error) {
		s.OnCancel(func() { cleaned = true })
		stop()
		if err := s.ThrowIfCanceled(); err != nil {
			return 0, err
		}
		return 1, nil
	})

	var canceledErr error
	tk.OnCancel(func(err error) { canceledErr = err })
	tk.OnFailure(func(err error) { t.Errorf("取消不应触发 failure 回调: %v", err) })

	_, err := tk.Run(ctx)
	assert.True(t, cancel.IsCanceled(err))
	assert.True(t, tk.IsCanceled())
	assert.True(t, cleaned, "清理回调在任务观察到结果之前执行")
	assert.Equal(t, err, canceledErr)

	// 非强制重跑原样返回取消错误
	_, again := tk.Run(context.Background())
	assert.Equal(t, err, again)

	v, err := tk.Run(context.Background(), Force())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRunCancellationWithoutCheck(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	tk := New(func(s *cancel.Scope) (int, error) {
		stop()
		return 5, nil
	})
	_, err := tk.Run(ctx)
	assert.True(t, cancel.IsCanceled(err))
	assert.Equal(t, StatusCanceled, tk.Status())
}

func TestResetAndLoadWith(t *testing.T) {
	var calls int32
	tk := New(counting(&calls))

	tk.LoadWith(100)
	assert.True(t, tk.IsSuccessful())
	v, err := tk.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, v)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "预加载后不执行计算")

	tk.Reset()
	assert.True(t, tk.IsPending())
	assert.Equal(t, 0, tk.Result())

	v, err = tk.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestResetIgnoredWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	tk := New(func(s *cancel.Scope) (int, error) {
		close(started)
		<-release
		return 1, nil
	})
	done := make(chan struct{})
	go func() {
		_, _ = tk.Run(context.Background())
		close(done)
	}()
	<-started
	tk.Reset()
	tk.LoadWith(9)
	assert.True(t, tk.IsRunning())
	close(release)
	<-done
	assert.Equal(t, 1, tk.Result())
}

func TestStatusObservers(t *testing.T) {
	var seen []Status
	var succeeded []int
	tk := New(func(s *cancel.Scope) (int, error) { return 3, nil })
	tk.OnStatusChange(func(s Status) { seen = append(seen, s) }).
		OnSuccess(func(v int) { succeeded = append(succeeded, v) })

	_, err := tk.Run(context.Background())
	require.NoError(t, err)
	tk.Reset()

	assert.Equal(t, []Status{StatusRunning, StatusSuccessful, StatusPending}, seen)
	assert.Equal(t, []int{3}, succeeded)
}

func TestChildrenAndContext(t *testing.T) {
	leaf := New(func(s *cancel.Scope) (int, error) { return 0, nil }, WithName("leaf"))
	mid := New(func(s *cancel.Scope) (int, error) { return 0, nil }, WithName("mid"), WithChildren(leaf))
	other := New(func(s *cancel.Scope) (string, error) { return "", nil }, WithName("other"))
	root := New(func(s *cancel.Scope) (bool, error) { return true, nil }, WithName("root")).SetChildren(mid, other)

	names := func(nodes []Node) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, n.Name())
		}
		return out
	}
	assert.Equal(t, []string{"mid", "other"}, names(root.Children()))
	assert.Equal(t, []string{"mid", "leaf", "other"}, names(root.Descendants()))

	root.SetContext("mint", "abc")
	v, ok := root.GetContext("mint")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	ctxCopy := root.Context()
	ctxCopy["mint"] = "changed"
	v, _ = root.GetContext("mint")
	assert.Equal(t, "abc", v)
}

func TestScopeContextReachesComputation(t *testing.T) {
	ctx, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	tk := New(func(s *cancel.Scope) (int, error) {
		return cancel.Call(s.Context(), func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
	})
	_, err := tk.Run(ctx)
	assert.True(t, cancel.IsCanceled(err))
	assert.True(t, tk.IsCanceled())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "canceled", StatusCanceled.String())
	assert.False(t, StatusRunning.IsSettled())
	assert.True(t, StatusFailed.IsSettled())
}
