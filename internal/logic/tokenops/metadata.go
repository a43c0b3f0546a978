package tokenops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sol-tx-engine/internal/consts"
	"sol-tx-engine/internal/logic/batchfetch"
	"sol-tx-engine/pkg/logger"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/near/borsh-go"
)

var MetadataProgramID = consts.TokenMetaProgram

const metadataKeyV1 = 4

var ErrInvalidMetadata = errors.New("invalid token metadata account")

// metadataLayout Token Metadata 账户前缀布局，creators 及之后的字段不解析
type metadataLayout struct {
	Key                  uint8
	UpdateAuthority      common.PublicKey
	Mint                 common.PublicKey
	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16
}

type TokenMetadata struct {
	Mint                 common.PublicKey
	Address              common.PublicKey // metadata PDA
	Exists               bool
	UpdateAuthority      common.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// MetadataAddress PDA = ["metadata", program_id, mint]
func MetadataAddress(mint common.PublicKey) (common.PublicKey, error) {
	addr, _, err := common.FindProgramAddress(
		[][]byte{[]byte("metadata"), MetadataProgramID[:], mint[:]},
		MetadataProgramID,
	)
	return addr, err
}

// FetchMetadata 按 mint 批量读取元数据，结果顺序与 mints 一致
func FetchMetadata(ctx context.Context, provider batchfetch.AccountProvider, mints []common.PublicKey, opts ...batchfetch.Option) ([]TokenMetadata, error) {
	addrs := make([]common.PublicKey, len(mints))
	for i, mint := range mints {
		addr, err := MetadataAddress(mint)
		if err != nil {
			return nil, fmt.Errorf("derive metadata address for %s: %w", mint.ToBase58(), err)
		}
		addrs[i] = addr
	}

	accounts, err := batchfetch.New(provider, addrs, opts...).Get(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]TokenMetadata, len(accounts))
	for i, acc := range accounts {
		md := TokenMetadata{Mint: mints[i], Address: addrs[i]}
		if acc.Exists {
			decoded, err := DecodeMetadata(acc.Data)
			if err != nil {
				return nil, fmt.Errorf("mint %s: %w", mints[i].ToBase58(), err)
			}
			if decoded.Mint != mints[i] {
				return nil, fmt.Errorf("%w: mint mismatch (expected=%s, got=%s)", ErrInvalidMetadata, mints[i].ToBase58(), decoded.Mint.ToBase58())
			}
			md = decoded
			md.Address = addrs[i]
		}
		out[i] = md
	}
	return out, nil
}

// DecodeMetadata 解析元数据账户，字符串去掉链上定长填充的 \x00
func DecodeMetadata(data []byte) (md TokenMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[TokenMetadata] borsh.Deserialize panic: %v, len=%d", r, len(data))
			err = fmt.Errorf("%w: %v", ErrInvalidMetadata, r)
		}
	}()

	if len(data) < 1+32+32 {
		return md, fmt.Errorf("%w: data too short (%d bytes)", ErrInvalidMetadata, len(data))
	}
	if data[0] != metadataKeyV1 {
		return md, fmt.Errorf("%w: unexpected key %d", ErrInvalidMetadata, data[0])
	}

	var layout metadataLayout
	if err := borsh.Deserialize(&layout, data); err != nil {
		return md, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return TokenMetadata{
		Mint:                 layout.Mint,
		Exists:               true,
		UpdateAuthority:      layout.UpdateAuthority,
		Name:                 trimPadding(layout.Name),
		Symbol:               trimPadding(layout.Symbol),
		URI:                  trimPadding(layout.Uri),
		SellerFeeBasisPoints: layout.SellerFeeBasisPoints,
	}, nil
}

func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}
