package utils

import (
	"context"

	"github.com/zeromicro/go-zero/core/mr"
)

// ParallelMap 并发执行 fn，结果顺序与 input 一致。
// concurrency <= 0 时每个元素一个 worker。
func ParallelMap[T, R any](input []T, concurrency int, fn func(T) R) []R {
	result, _ := ParallelMapErr(context.Background(), input, concurrency, func(_ context.Context, item T) (R, error) {
		return fn(item), nil
	})
	return result
}

// ParallelMapErr 与 ParallelMap 相同，但任意一个 fn 返回错误时整体失败，
// 其余尚未开始的任务不再执行，ctx 取消时同样提前返回。
func ParallelMapErr[T, R any](ctx context.Context, input []T, concurrency int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(input) == 0 {
		return []R{}, nil
	}

	// 单元素直接执行，省掉调度开销
	if len(input) == 1 {
		r, err := fn(ctx, input[0])
		if err != nil {
			return nil, err
		}
		return []R{r}, nil
	}

	workers := concurrency
	if workers <= 0 || workers > len(input) {
		workers = len(input)
	}

	// 每个下标只被一个 worker 写入
	result := make([]R, len(input))
	err := mr.MapReduceVoid(func(source chan<- int) {
		for i := range input {
			source <- i
		}
	}, func(i int, writer mr.Writer[struct{}], cancel func(error)) {
		r, err := fn(ctx, input[i])
		if err != nil {
			cancel(err)
			return
		}
		result[i] = r
		writer.Write(struct{}{})
	}, func(pipe <-chan struct{}, cancel func(error)) {
		for range pipe {
		}
	}, mr.WithWorkers(workers), mr.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}
