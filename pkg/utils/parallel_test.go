package utils

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelMap(t *testing.T) {
	// 测试空输入
	t.Run("empty input", func(t *testing.T) {
		var emptyInput []int
		result := ParallelMap(emptyInput, 4, func(i int) int {
			return i * 2
		})
		assert.Len(t, result, 0)
	})

	// 测试单元素输入
	t.Run("single input", func(t *testing.T) {
		result := ParallelMap([]int{42}, 4, func(i int) int {
			return i * 2
		})
		assert.Equal(t, []int{84}, result)
	})

	// 随机延迟下结果顺序仍与输入一致
	t.Run("multiple inputs with order", func(t *testing.T) {
		input := []int{1, 2, 3, 4, 5}
		result := ParallelMap(input, 3, func(i int) int {
			time.Sleep(time.Duration(rand.Intn(10)) * time.Millisecond)
			return i * 2
		})
		assert.Equal(t, []int{2, 4, 6, 8, 10}, result)
	})

	// 并发数不超过设定值
	t.Run("concurrency limit", func(t *testing.T) {
		input := make([]int, 40)
		var current, peak int32
		ParallelMap(input, 5, func(i int) int {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return i
		})
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(5))
	})
}

func TestParallelMapErr(t *testing.T) {
	t.Run("first error wins", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := ParallelMapErr(context.Background(), []int{1, 2, 3, 4}, 0, func(_ context.Context, i int) (int, error) {
			if i == 3 {
				return 0, boom
			}
			return i, nil
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("single element error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := ParallelMapErr(context.Background(), []int{1}, 0, func(_ context.Context, i int) (int, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("ordered results", func(t *testing.T) {
		input := []string{"a", "b", "c", "d"}
		result, err := ParallelMapErr(context.Background(), input, 0, func(_ context.Context, s string) (string, error) {
			if s == "a" {
				time.Sleep(20 * time.Millisecond)
			}
			return s + s, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"aa", "bb", "cc", "dd"}, result)
	})
}
