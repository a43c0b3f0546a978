// Package batchfetch 批量获取账户：按 provider 单次上限切块、并发请求，
// 结果按请求地址顺序重新拼接。
package batchfetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"sol-tx-engine/internal/logic/cancel"
	"sol-tx-engine/internal/pkg/utils"
	"sol-tx-engine/pkg/logger"
	parallel "sol-tx-engine/pkg/utils"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
)

// DefaultChunkSize getMultipleAccounts 单次请求的地址上限
const DefaultChunkSize = 100

var ErrResultMismatch = errors.New("account count does not match request")

// MaybeAccount 账户可能不存在，Exists 为 false 时其余字段为零值
type MaybeAccount struct {
	PublicKey  common.PublicKey
	Exists     bool
	Lamports   uint64
	Owner      common.PublicKey
	Executable bool
	RentEpoch  uint64
	Data       []byte
}

// AccountProvider 返回结果与输入地址一一对应
type AccountProvider interface {
	GetMultipleAccounts(ctx context.Context, addresses []common.PublicKey, commitment rpc.Commitment) ([]MaybeAccount, error)
}

type Option func(f *Fetcher)

// WithChunkSize 覆盖默认的单次地址上限，<= 0 时忽略
func WithChunkSize(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

func WithCommitment(c rpc.Commitment) Option {
	return func(f *Fetcher) { f.commitment = c }
}

type Fetcher struct {
	provider   AccountProvider
	addresses  []common.PublicKey
	chunkSize  int
	commitment rpc.Commitment
}

func New(provider AccountProvider, addresses []common.PublicKey, opts ...Option) *Fetcher {
	f := &Fetcher{
		provider:   provider,
		addresses:  append([]common.PublicKey(nil), addresses...),
		chunkSize:  DefaultChunkSize,
		commitment: rpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Len() int {
	return len(f.addresses)
}

func (f *Fetcher) Addresses() []common.PublicKey {
	return append([]common.PublicKey(nil), f.addresses...)
}

func (f *Fetcher) Get(ctx context.Context) ([]MaybeAccount, error) {
	return f.fetch(ctx, f.addresses)
}

// GetFirst 前 n 个，n 超出长度时返回全部
func (f *Fetcher) GetFirst(ctx context.Context, n int) ([]MaybeAccount, error) {
	return f.GetBetween(ctx, 0, n)
}

// GetLast 后 n 个
func (f *Fetcher) GetLast(ctx context.Context, n int) ([]MaybeAccount, error) {
	return f.GetBetween(ctx, len(f.addresses)-n, len(f.addresses))
}

// GetBetween 半开区间 [start, end)。下标夹到合法范围内而不是报错，
// start > end 时交换两端。
func (f *Fetcher) GetBetween(ctx context.Context, start, end int) ([]MaybeAccount, error) {
	total := len(f.addresses)
	start = utils.ClampIndex(start, 0, total)
	end = utils.ClampIndex(end, 0, total)
	if start > end {
		start, end = end, start
	}
	return f.fetch(ctx, f.addresses[start:end])
}

// GetPage 从 1 开始的分页，超出范围的页返回空
func (f *Fetcher) GetPage(ctx context.Context, page, perPage int) ([]MaybeAccount, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || page > math.MaxInt/perPage {
		return []MaybeAccount{}, nil
	}
	return f.GetBetween(ctx, (page-1)*perPage, page*perPage)
}

func (f *Fetcher) fetch(ctx context.Context, addresses []common.PublicKey) ([]MaybeAccount, error) {
	if len(addresses) == 0 {
		return []MaybeAccount{}, nil
	}

	// 重复地址只请求一次，结果再分发回所有位置
	unique := make([]common.PublicKey, 0, len(addresses))
	position := make(map[common.PublicKey]int, len(addresses))
	for _, addr := range addresses {
		if _, ok := position[addr]; ok {
			continue
		}
		position[addr] = len(unique)
		unique = append(unique, addr)
	}

	start := time.Now()
	ranges := utils.PartitionRanges(len(unique), f.chunkSize)
	chunks, err := parallel.ParallelMapErr(ctx, ranges, 0, func(ctx context.Context, r utils.ChunkRange) ([]MaybeAccount, error) {
		part := unique[r.Start:r.End]
		accounts, err := cancel.Call(ctx, func(ctx context.Context) ([]MaybeAccount, error) {
			return f.provider.GetMultipleAccounts(ctx, part, f.commitment)
		})
		if err != nil {
			return nil, err
		}
		if len(accounts) != len(part) {
			return nil, fmt.Errorf("%w: got=%d want=%d", ErrResultMismatch, len(accounts), len(part))
		}
		return accounts, nil
	})
	if err != nil {
		// mr 在 ctx 结束时返回的错误不区分取消原因，改用 ctx 的 cause
		if ctx.Err() != nil && !cancel.IsCanceled(err) {
			return nil, fmt.Errorf("%w: %w", cancel.ErrCanceled, context.Cause(ctx))
		}
		return nil, err
	}

	fetched := make([]MaybeAccount, 0, len(unique))
	for _, chunk := range chunks {
		fetched = append(fetched, chunk...)
	}

	result := make([]MaybeAccount, len(addresses))
	for i, addr := range addresses {
		acc := fetched[position[addr]]
		acc.PublicKey = addr
		result[i] = acc
	}

	logger.Debugf("[BatchFetcher] 获取账户完成, 地址数: %d, 去重后: %d, 分块: %d, 耗时: %v",
		len(addresses), len(unique), len(ranges), time.Since(start))
	return result, nil
}

// Map 用 fn 转换一批账户，任意一个失败即返回
func Map[T any](accounts []MaybeAccount, fn func(MaybeAccount) (T, error)) ([]T, error) {
	out := make([]T, 0, len(accounts))
	for _, acc := range accounts {
		v, err := fn(acc)
		if err != nil {
			return nil, fmt.Errorf("map account %s: %w", acc.PublicKey.ToBase58(), err)
		}
		out = append(out, v)
	}
	return out, nil
}
