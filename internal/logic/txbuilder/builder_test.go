package txbuilder

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-tx-engine/internal/logic/cancel"
)

type mintContext struct {
	Mint common.PublicKey
}

func newSigner() Signer {
	return NewKeypairSigner(types.NewAccount())
}

// record 构造一条可区分的测试指令，Data 第一个字节作为编号
func record(id byte, key string, signers ...Signer) InstructionRecord {
	return InstructionRecord{
		Instruction: types.Instruction{ProgramID: common.SystemProgramID, Data: []byte{id}},
		Signers:     signers,
		Key:         key,
	}
}

func ids(b interface{ Instructions() []types.Instruction }) []byte {
	var out []byte
	for _, ix := range b.Instructions() {
		out = append(out, ix.Data[0])
	}
	return out
}

func TestAppendPrepend(t *testing.T) {
	t.Run("append keeps order", func(t *testing.T) {
		b := New[struct{}]().Append(record(1, ""), record(2, "")).Add(record(3, ""))
		assert.Equal(t, []byte{1, 2, 3}, ids(b))
		assert.Equal(t, 3, b.InstructionCount())
	})

	t.Run("prepend builders and records", func(t *testing.T) {
		sub := New[mintContext]().Append(record(10, ""), record(11, ""))
		b := New[struct{}]().Append(record(1, ""), record(2, ""))
		b.Prepend(sub, record(12, ""))
		assert.Equal(t, []byte{10, 11, 12, 1, 2}, ids(b))
		// 被合并的子 builder 不受影响
		assert.Equal(t, []byte{10, 11}, ids(sub))
	})

	t.Run("records returns a copy", func(t *testing.T) {
		b := New[struct{}]().Append(record(1, ""))
		rs := b.Records()
		rs[0].Key = "mutated"
		assert.Equal(t, "", b.Records()[0].Key)
	})

	t.Run("empty is valid", func(t *testing.T) {
		b := New[struct{}]()
		assert.True(t, b.IsEmpty())
		assert.Empty(t, b.Instructions())
	})
}

func TestWhenUnless(t *testing.T) {
	addOptional := func(b *Builder[struct{}]) *Builder[struct{}] {
		return b.Append(record(9, "optional"))
	}

	b := New[struct{}]().Append(record(1, "")).When(true, addOptional).When(false, addOptional)
	assert.Equal(t, []byte{1, 9}, ids(b))

	b = New[struct{}]().Append(record(1, "")).Unless(true, addOptional).Unless(false, addOptional)
	assert.Equal(t, []byte{1, 9}, ids(b))
}

func TestSplitUsingKey(t *testing.T) {
	payer := newSigner()
	build := func() *Builder[mintContext] {
		return New[mintContext]().
			SetFeePayer(payer).
			SetContext(mintContext{Mint: common.TokenProgramID}).
			Append(record(0, "a"), record(1, "b"), record(2, "split"), record(3, "c"), record(4, "split"))
	}

	t.Run("include", func(t *testing.T) {
		b := build()
		first, second := b.SplitUsingKey("split", true)
		assert.Equal(t, []byte{0, 1, 2}, ids(first))
		assert.Equal(t, []byte{3, 4}, ids(second))
		assert.Equal(t, append(ids(first), ids(second)...), ids(b))
	})

	t.Run("exclude", func(t *testing.T) {
		first, second := build().SplitBeforeKey("split")
		assert.Equal(t, []byte{0, 1}, ids(first))
		assert.Equal(t, []byte{2, 3, 4}, ids(second))
	})

	t.Run("after key", func(t *testing.T) {
		first, second := build().SplitAfterKey("a")
		assert.Equal(t, []byte{0}, ids(first))
		assert.Equal(t, []byte{1, 2, 3, 4}, ids(second))
	})

	t.Run("missing key keeps everything in first half", func(t *testing.T) {
		b := build()
		first, second := b.SplitUsingKey("nope", true)
		assert.Equal(t, ids(b), ids(first))
		assert.True(t, second.IsEmpty())
	})

	t.Run("halves inherit payer and context", func(t *testing.T) {
		first, second := build().SplitUsingKey("split", true)
		assert.Equal(t, payer.PublicKey(), first.FeePayer().PublicKey())
		assert.Equal(t, payer.PublicKey(), second.FeePayer().PublicKey())
		assert.Equal(t, common.TokenProgramID, second.Context().Mint)
	})

	t.Run("halves are independent", func(t *testing.T) {
		b := build()
		first, _ := b.SplitUsingKey("split", true)
		first.Append(record(99, ""))
		assert.Equal(t, []byte{0, 1, 2, 3, 4}, ids(b))
	})
}

// handleSigner 指针类型的签名者，每次构造都是不同的句柄
type handleSigner struct {
	KeypairSigner
}

func TestSigners(t *testing.T) {
	payer, c := newSigner(), newSigner()
	account := types.NewAccount()
	a := Signer(&handleSigner{NewKeypairSigner(account)})
	// 另一个句柄实例，公钥与 a 相同
	aCopy := Signer(&handleSigner{NewKeypairSigner(account)})
	require.NotSame(t, a, aCopy)

	b := New[struct{}]().Append(
		record(1, "", a, payer),
		record(2, "", c, aCopy),
		record(3, "", payer),
	)

	t.Run("no fee payer", func(t *testing.T) {
		signers := b.Signers()
		assert.Equal(t, []common.PublicKey{a.PublicKey(), payer.PublicKey(), c.PublicKey()}, pubkeys(signers))
		assert.Same(t, a, signers[0], "同一公钥的多个句柄只保留首个")
	})

	t.Run("fee payer first", func(t *testing.T) {
		b.SetFeePayer(payer)
		keys := pubkeys(b.Signers())
		assert.Equal(t, []common.PublicKey{payer.PublicKey(), a.PublicKey(), c.PublicKey()}, keys)
	})
}

func pubkeys(signers []Signer) []common.PublicKey {
	out := make([]common.PublicKey, 0, len(signers))
	for _, s := range signers {
		out = append(out, s.PublicKey())
	}
	return out
}

func TestToTransaction(t *testing.T) {
	payer := types.NewAccount()
	from := types.NewAccount()
	to := types.NewAccount()
	blockhash := "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"

	transfer := InstructionRecord{
		Instruction: system.Transfer(system.TransferParam{
			From:   from.PublicKey,
			To:     to.PublicKey,
			Amount: 1,
		}),
		Signers: []Signer{NewKeypairSigner(from)},
		Key:     "transfer",
	}

	t.Run("signs with every required signer", func(t *testing.T) {
		b := New[struct{}]().SetFeePayer(NewKeypairSigner(payer)).Append(transfer)
		tx, err := b.ToTransaction(blockhash)
		require.NoError(t, err)
		require.Len(t, tx.Signatures, 2)
		assert.Equal(t, payer.PublicKey, tx.Message.Accounts[0])

		data, err := tx.Message.Serialize()
		require.NoError(t, err)
		for i, sig := range tx.Signatures {
			pub := ed25519.PublicKey(tx.Message.Accounts[i][:])
			assert.True(t, ed25519.Verify(pub, data, sig))
		}
	})

	t.Run("missing signer", func(t *testing.T) {
		unsigned := transfer
		unsigned.Signers = nil
		b := New[struct{}]().SetFeePayer(NewKeypairSigner(payer)).Append(unsigned)
		_, err := b.ToTransaction(blockhash)
		assert.ErrorIs(t, err, ErrMissingSigner)
		var missing *MissingSignerError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, from.PublicKey, missing.PublicKey)
	})

	t.Run("no fee payer", func(t *testing.T) {
		_, err := New[struct{}]().Append(transfer).ToTransaction(blockhash)
		assert.ErrorIs(t, err, ErrNoFeePayer)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := New[struct{}]().ToTransaction(blockhash)
		assert.ErrorIs(t, err, ErrNoInstructions)
	})
}

type fakeProvider struct {
	calls int
	got   []types.Instruction
	resp  SendResponse
	err   error
	hook  func()
}

func (f *fakeProvider) SendAndConfirmTransaction(ctx context.Context, tx Compiler, opts ConfirmOptions) (SendResponse, error) {
	f.calls++
	if b, ok := tx.(interface{ Instructions() []types.Instruction }); ok {
		f.got = b.Instructions()
	}
	if f.hook != nil {
		f.hook()
	}
	return f.resp, f.err
}

func TestSendAndConfirm(t *testing.T) {
	payer := newSigner()
	mint := types.NewAccount().PublicKey

	t.Run("merges response with context", func(t *testing.T) {
		p := &fakeProvider{resp: SendResponse{Signature: "sig", Slot: 10, ConfirmationStatus: rpc.CommitmentConfirmed}}
		b := New[mintContext]().SetFeePayer(payer).SetContext(mintContext{Mint: mint}).Append(record(1, ""), record(2, ""))

		res, err := b.SendAndConfirm(context.Background(), p, ConfirmOptions{})
		require.NoError(t, err)
		assert.Equal(t, "sig", res.Signature)
		assert.Equal(t, uint64(10), res.Slot)
		assert.Equal(t, mint, res.Context.Mint)
		assert.Equal(t, []byte{1, 2}, []byte{p.got[0].Data[0], p.got[1].Data[0]})
	})

	t.Run("provider error unchanged", func(t *testing.T) {
		boom := errors.New("rejected")
		p := &fakeProvider{err: boom}
		_, err := New[struct{}]().SetFeePayer(payer).Append(record(1, "")).SendAndConfirm(context.Background(), p, ConfirmOptions{})
		assert.Same(t, boom, err)
	})

	t.Run("empty builder does not reach provider", func(t *testing.T) {
		p := &fakeProvider{}
		_, err := New[struct{}]().SendAndConfirm(context.Background(), p, ConfirmOptions{})
		assert.ErrorIs(t, err, ErrNoInstructions)
		assert.Equal(t, 0, p.calls)
	})

	t.Run("missing fee payer does not reach provider", func(t *testing.T) {
		p := &fakeProvider{}
		_, err := New[struct{}]().Append(record(1, "")).SendAndConfirm(context.Background(), p, ConfirmOptions{})
		assert.ErrorIs(t, err, ErrNoFeePayer)
		assert.Equal(t, 0, p.calls)
	})

	t.Run("canceled before send", func(t *testing.T) {
		ctx, stop := context.WithCancel(context.Background())
		stop()
		p := &fakeProvider{}
		_, err := New[struct{}]().SetFeePayer(payer).Append(record(1, "")).SendAndConfirm(ctx, p, ConfirmOptions{})
		assert.True(t, cancel.IsCanceled(err))
		assert.Equal(t, 0, p.calls)
	})

	t.Run("canceled during send", func(t *testing.T) {
		ctx, stop := context.WithCancel(context.Background())
		p := &fakeProvider{hook: stop}
		_, err := New[struct{}]().SetFeePayer(payer).Append(record(1, "")).SendAndConfirm(ctx, p, ConfirmOptions{})
		assert.True(t, cancel.IsCanceled(err))
		assert.Equal(t, 1, p.calls)
	})
}
