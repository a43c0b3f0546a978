package tokenops

import (
	"sol-tx-engine/internal/logic/txbuilder"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/system"
)

const KeyTransfer = "transfer"

type TransferContext struct {
	From     common.PublicKey
	To       common.PublicKey
	Lamports uint64
}

// TransferSol 构造一笔 SOL 转账，付款方同时作为手续费支付方
func TransferSol(from txbuilder.Signer, to common.PublicKey, lamports uint64) *txbuilder.Builder[TransferContext] {
	ix := system.Transfer(system.TransferParam{
		From:   from.PublicKey(),
		To:     to,
		Amount: lamports,
	})
	return txbuilder.New[TransferContext]().
		Add(txbuilder.InstructionRecord{Instruction: ix, Signers: []txbuilder.Signer{from}, Key: KeyTransfer}).
		SetFeePayer(from).
		SetContext(TransferContext{From: from.PublicKey(), To: to, Lamports: lamports})
}
