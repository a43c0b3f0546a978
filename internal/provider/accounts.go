package provider

import (
	"context"
	"fmt"
	"time"

	"sol-tx-engine/internal/logic/batchfetch"
	"sol-tx-engine/pkg/logger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
)

type multipleAccountsClient interface {
	GetMultipleAccountsWithConfig(ctx context.Context, addrs []string, cfg client.GetMultipleAccountsConfig) ([]client.AccountInfo, error)
}

// RpcAccountProvider 基于 JSON-RPC getMultipleAccounts 的账户获取
type RpcAccountProvider struct {
	client  multipleAccountsClient
	timeout time.Duration
}

func NewRpcAccountProvider(c multipleAccountsClient, timeout time.Duration) *RpcAccountProvider {
	return &RpcAccountProvider{client: c, timeout: timeout}
}

func (p *RpcAccountProvider) GetMultipleAccounts(ctx context.Context, addresses []common.PublicKey, commitment rpc.Commitment) ([]batchfetch.MaybeAccount, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	strs := make([]string, 0, len(addresses))
	for _, a := range addresses {
		strs = append(strs, a.ToBase58())
	}

	start := time.Now()
	infos, err := p.client.GetMultipleAccountsWithConfig(ctx, strs, client.GetMultipleAccountsConfig{
		Commitment: commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if len(infos) != len(addresses) {
		return nil, fmt.Errorf("%w: 返回账户数与请求不一致: got=%d want=%d", ErrFetchFailed, len(infos), len(addresses))
	}
	logger.Debugf("[RpcAccountProvider] GetMultipleAccounts 成功, 账户数: %d, 耗时: %v", len(addresses), time.Since(start))

	out := make([]batchfetch.MaybeAccount, 0, len(infos))
	for i, info := range infos {
		out = append(out, toMaybeAccount(addresses[i], info))
	}
	return out, nil
}

// 不存在的账户被 SDK 转成零值 AccountInfo：owner 为空且没有 lamports
func toMaybeAccount(addr common.PublicKey, info client.AccountInfo) batchfetch.MaybeAccount {
	if info.Owner == (common.PublicKey{}) && info.Lamports == 0 {
		return batchfetch.MaybeAccount{PublicKey: addr}
	}
	return batchfetch.MaybeAccount{
		PublicKey:  addr,
		Exists:     true,
		Lamports:   info.Lamports,
		Owner:      info.Owner,
		Executable: info.Executable,
		RentEpoch:  info.RentEpoch,
		Data:       info.Data,
	}
}
