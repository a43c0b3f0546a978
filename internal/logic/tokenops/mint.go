package tokenops

import (
	"context"
	"fmt"

	"sol-tx-engine/internal/logic/cancel"
	"sol-tx-engine/internal/logic/txbuilder"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	sdktoken "github.com/blocto/solana-go-sdk/program/token"
)

// 指令标签，可用于 SplitBeforeKey / SplitAfterKey
const (
	KeyCreateMintAccount  = "create-mint-account"
	KeyInitializeMint     = "initialize-mint"
	KeyCreateTokenAccount = "create-token-account"
	KeyMintTo             = "mint-to"
)

type RentProvider interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
}

// MintContext 提交前即可确定的派生地址
type MintContext struct {
	Mint         common.PublicKey
	TokenAccount common.PublicKey // Owner 的关联 token 账户
	Owner        common.PublicKey
	Decimals     uint8
	Amount       uint64
}

type CreateMintParams struct {
	Payer           txbuilder.Signer
	Mint            txbuilder.Signer // 新 mint 账户的密钥
	Owner           common.PublicKey // 为空时取 Payer
	Decimals        uint8
	Amount          uint64 // 初始铸造数量（最小单位），0 表示不铸造
	FreezeAuthority *common.PublicKey
}

// CreateMint 创建 mint、初始化、为 Owner 创建关联 token 账户并按需铸造初始数量。
// 租金查询是唯一的网络访问。
func CreateMint(ctx context.Context, rent RentProvider, p CreateMintParams) (*txbuilder.Builder[MintContext], error) {
	payer := p.Payer.PublicKey()
	mint := p.Mint.PublicKey()
	owner := p.Owner
	if owner == (common.PublicKey{}) {
		owner = payer
	}

	lamports, err := cancel.Call(ctx, func(ctx context.Context) (uint64, error) {
		return rent.GetMinimumBalanceForRentExemption(ctx, sdktoken.MintAccountSize)
	})
	if err != nil {
		return nil, fmt.Errorf("get rent exemption for mint: %w", err)
	}

	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("derive associated token account: %w", err)
	}

	b := txbuilder.New[MintContext]().
		SetFeePayer(p.Payer).
		Add(
			txbuilder.InstructionRecord{
				Instruction: system.CreateAccount(system.CreateAccountParam{
					From:     payer,
					New:      mint,
					Owner:    common.TokenProgramID,
					Lamports: lamports,
					Space:    sdktoken.MintAccountSize,
				}),
				Signers: []txbuilder.Signer{p.Payer, p.Mint},
				Key:     KeyCreateMintAccount,
			},
			txbuilder.InstructionRecord{
				Instruction: sdktoken.InitializeMint2(sdktoken.InitializeMint2Param{
					Decimals:   p.Decimals,
					Mint:       mint,
					MintAuth:   payer,
					FreezeAuth: p.FreezeAuthority,
				}),
				Key: KeyInitializeMint,
			},
			txbuilder.InstructionRecord{
				Instruction: associated_token_account.Create(associated_token_account.CreateParam{
					Funder:                 payer,
					Owner:                  owner,
					Mint:                   mint,
					AssociatedTokenAccount: ata,
				}),
				Signers: []txbuilder.Signer{p.Payer},
				Key:     KeyCreateTokenAccount,
			},
		).
		When(p.Amount > 0, func(b *txbuilder.Builder[MintContext]) *txbuilder.Builder[MintContext] {
			return b.Add(txbuilder.InstructionRecord{
				Instruction: sdktoken.MintToChecked(sdktoken.MintToCheckedParam{
					Mint:     mint,
					Auth:     payer,
					To:       ata,
					Amount:   p.Amount,
					Decimals: p.Decimals,
				}),
				Signers: []txbuilder.Signer{p.Payer},
				Key:     KeyMintTo,
			})
		}).
		SetContext(MintContext{
			Mint:         mint,
			TokenAccount: ata,
			Owner:        owner,
			Decimals:     p.Decimals,
			Amount:       p.Amount,
		})
	return b, nil
}
