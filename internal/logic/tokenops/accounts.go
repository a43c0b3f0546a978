package tokenops

import (
	"context"
	"errors"
	"fmt"

	"sol-tx-engine/internal/consts"
	"sol-tx-engine/internal/logic/batchfetch"

	"github.com/blocto/solana-go-sdk/common"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
	"github.com/shopspring/decimal"
)

var (
	ErrNotTokenProgramAccount = errors.New("account is not owned by the token program")
	ErrToken2022Unsupported   = errors.New("token-2022 accounts are not supported")
)

func checkTokenOwner(acc batchfetch.MaybeAccount) error {
	switch acc.Owner {
	case common.TokenProgramID:
		return nil
	case consts.TokenProgram2022:
		return fmt.Errorf("%w: %s", ErrToken2022Unsupported, acc.PublicKey.ToBase58())
	default:
		return fmt.Errorf("%w: account=%s owner=%s", ErrNotTokenProgramAccount, acc.PublicKey.ToBase58(), acc.Owner.ToBase58())
	}
}

type MintInfo struct {
	Address         common.PublicKey
	Exists          bool
	Decimals        uint8
	Supply          uint64
	MintAuthority   *common.PublicKey
	FreezeAuthority *common.PublicKey
}

// UISupply 按 decimals 换算后的供应量
func (m MintInfo) UISupply() decimal.Decimal {
	return FromBaseUnits(m.Supply, m.Decimals)
}

type TokenAccountInfo struct {
	Address common.PublicKey
	Exists  bool
	Mint    common.PublicKey
	Owner   common.PublicKey
	Amount  uint64
}

// FetchMints 批量读取 mint 账户，结果与输入一一对应；不存在的地址 Exists=false
func FetchMints(ctx context.Context, provider batchfetch.AccountProvider, mints []common.PublicKey, opts ...batchfetch.Option) ([]MintInfo, error) {
	accounts, err := batchfetch.New(provider, mints, opts...).Get(ctx)
	if err != nil {
		return nil, err
	}
	return batchfetch.Map(accounts, DecodeMint)
}

func DecodeMint(acc batchfetch.MaybeAccount) (MintInfo, error) {
	info := MintInfo{Address: acc.PublicKey, Exists: acc.Exists}
	if !acc.Exists {
		return info, nil
	}
	if err := checkTokenOwner(acc); err != nil {
		return info, err
	}
	m, err := sdktoken.MintAccountFromData(acc.Data)
	if err != nil {
		return info, fmt.Errorf("decode mint %s: %w", acc.PublicKey.ToBase58(), err)
	}
	info.Decimals = m.Decimals
	info.Supply = m.Supply
	info.MintAuthority = m.MintAuthority
	info.FreezeAuthority = m.FreezeAuthority
	return info, nil
}

// FetchTokenAccounts 批量读取 token 账户
func FetchTokenAccounts(ctx context.Context, provider batchfetch.AccountProvider, addresses []common.PublicKey, opts ...batchfetch.Option) ([]TokenAccountInfo, error) {
	accounts, err := batchfetch.New(provider, addresses, opts...).Get(ctx)
	if err != nil {
		return nil, err
	}
	return batchfetch.Map(accounts, DecodeTokenAccount)
}

func DecodeTokenAccount(acc batchfetch.MaybeAccount) (TokenAccountInfo, error) {
	info := TokenAccountInfo{Address: acc.PublicKey, Exists: acc.Exists}
	if !acc.Exists {
		return info, nil
	}
	if err := checkTokenOwner(acc); err != nil {
		return info, err
	}
	ta, err := sdktoken.TokenAccountFromData(acc.Data)
	if err != nil {
		return info, fmt.Errorf("decode token account %s: %w", acc.PublicKey.ToBase58(), err)
	}
	info.Mint = ta.Mint
	info.Owner = ta.Owner
	info.Amount = ta.Amount
	return info, nil
}
