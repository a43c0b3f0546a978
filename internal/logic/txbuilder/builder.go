// Package txbuilder 组合交易：有序的指令记录 + 所需签名者，整体原子提交。
// 除 SendAndConfirm 外所有方法都是纯本地操作，不访问网络。
package txbuilder

import (
	"context"
	"errors"

	"sol-tx-engine/internal/logic/cancel"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

var (
	ErrNoInstructions = errors.New("transaction has no instructions")
	ErrNoFeePayer     = errors.New("transaction has no fee payer")
	ErrMissingSigner  = errors.New("missing signer for required signature")
)

// InstructionRecord 一条指令及其签名者，Key 为可选标签（不要求唯一，按首个匹配处理）
type InstructionRecord struct {
	Instruction types.Instruction
	Signers     []Signer
	Key         string
}

// Records 让单条记录也能直接传给 Append / Prepend
func (r InstructionRecord) Records() []InstructionRecord {
	return []InstructionRecord{r}
}

// Source 可以被追加到 Builder 的内容：单条记录或另一个 Builder
type Source interface {
	Records() []InstructionRecord
}

// Builder 可组合的提交单元。C 为构造方设置的上下文类型，
// 用于携带提交后才会存在的地址等派生值。
type Builder[C any] struct {
	records  []InstructionRecord
	feePayer Signer
	context  C
}

func New[C any]() *Builder[C] {
	return &Builder[C]{}
}

// Append 追加到末尾
func (b *Builder[C]) Append(items ...Source) *Builder[C] {
	for _, item := range items {
		b.records = append(b.records, item.Records()...)
	}
	return b
}

// Add 等同于 Append
func (b *Builder[C]) Add(items ...Source) *Builder[C] {
	return b.Append(items...)
}

// Prepend 插入到开头，多个 item 之间保持传入顺序
func (b *Builder[C]) Prepend(items ...Source) *Builder[C] {
	var head []InstructionRecord
	for _, item := range items {
		head = append(head, item.Records()...)
	}
	b.records = append(head, b.records...)
	return b
}

// Records 返回记录副本
func (b *Builder[C]) Records() []InstructionRecord {
	out := make([]InstructionRecord, len(b.records))
	copy(out, b.records)
	return out
}

func (b *Builder[C]) Instructions() []types.Instruction {
	out := make([]types.Instruction, 0, len(b.records))
	for _, r := range b.records {
		out = append(out, r.Instruction)
	}
	return out
}

func (b *Builder[C]) InstructionCount() int {
	return len(b.records)
}

// IsEmpty 零条指令是合法终态，表示“无需任何变更”
func (b *Builder[C]) IsEmpty() bool {
	return len(b.records) == 0
}

func (b *Builder[C]) SetFeePayer(payer Signer) *Builder[C] {
	b.feePayer = payer
	return b
}

func (b *Builder[C]) FeePayer() Signer {
	return b.feePayer
}

func (b *Builder[C]) SetContext(c C) *Builder[C] {
	b.context = c
	return b
}

func (b *Builder[C]) Context() C {
	return b.context
}

// When cond 为真时应用 fn
func (b *Builder[C]) When(cond bool, fn func(b *Builder[C]) *Builder[C]) *Builder[C] {
	if !cond {
		return b
	}
	return fn(b)
}

// Unless cond 为假时应用 fn
func (b *Builder[C]) Unless(cond bool, fn func(b *Builder[C]) *Builder[C]) *Builder[C] {
	return b.When(!cond, fn)
}

// SplitUsingKey 在第一条带 key 的记录处切分，include 为真时该记录归前半段。
// 找不到 key 时整个 builder 作为前半段，后半段为空，不丢弃任何指令。
// 两半都继承 fee payer 与上下文。
func (b *Builder[C]) SplitUsingKey(key string, include bool) (*Builder[C], *Builder[C]) {
	cut := len(b.records)
	for i, r := range b.records {
		if r.Key == key {
			cut = i
			if include {
				cut++
			}
			break
		}
	}

	first := b.derive(b.records[:cut])
	second := b.derive(b.records[cut:])
	return first, second
}

func (b *Builder[C]) SplitBeforeKey(key string) (*Builder[C], *Builder[C]) {
	return b.SplitUsingKey(key, false)
}

func (b *Builder[C]) SplitAfterKey(key string) (*Builder[C], *Builder[C]) {
	return b.SplitUsingKey(key, true)
}

func (b *Builder[C]) derive(records []InstructionRecord) *Builder[C] {
	out := make([]InstructionRecord, len(records))
	copy(out, records)
	return &Builder[C]{records: out, feePayer: b.feePayer, context: b.context}
}

// Signers fee payer（若设置）在首位，其后为所有记录签名者按首次出现顺序去重
func (b *Builder[C]) Signers() []Signer {
	all := make([]Signer, 0, len(b.records)+1)
	if b.feePayer != nil {
		all = append(all, b.feePayer)
	}
	for _, r := range b.records {
		all = append(all, r.Signers...)
	}
	return dedupeSigners(all)
}

// ToTransaction 用给定 blockhash 编译消息并签名
func (b *Builder[C]) ToTransaction(recentBlockhash string) (types.Transaction, error) {
	if b.IsEmpty() {
		return types.Transaction{}, ErrNoInstructions
	}
	if b.feePayer == nil {
		return types.Transaction{}, ErrNoFeePayer
	}

	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        b.feePayer.PublicKey(),
		Instructions:    b.Instructions(),
		RecentBlockhash: recentBlockhash,
	})
	data, err := msg.Serialize()
	if err != nil {
		return types.Transaction{}, err
	}

	byKey := make(map[common.PublicKey]Signer)
	for _, s := range b.Signers() {
		byKey[s.PublicKey()] = s
	}

	required := int(msg.Header.NumRequireSignatures)
	sigs := make([]types.Signature, 0, required)
	for i := 0; i < required; i++ {
		key := msg.Accounts[i]
		s, ok := byKey[key]
		if !ok {
			return types.Transaction{}, &MissingSignerError{PublicKey: key}
		}
		sig, err := s.Sign(data)
		if err != nil {
			return types.Transaction{}, err
		}
		sigs = append(sigs, sig)
	}

	return types.Transaction{Signatures: sigs, Message: msg}, nil
}

// MissingSignerError 消息要求签名但 builder 中没有对应签名者
type MissingSignerError struct {
	PublicKey common.PublicKey
}

func (e *MissingSignerError) Error() string {
	return ErrMissingSigner.Error() + ": " + e.PublicKey.ToBase58()
}

func (e *MissingSignerError) Unwrap() error {
	return ErrMissingSigner
}

// Result 网络结果与构造上下文一并返回
type Result[C any] struct {
	SendResponse
	Context C
}

// SendAndConfirm 唯一的出网口：委托给 provider 提交并等待确认。
// provider 的错误原样返回，不做解释也不重试。
func (b *Builder[C]) SendAndConfirm(ctx context.Context, provider SubmissionProvider, opts ConfirmOptions) (Result[C], error) {
	if b.IsEmpty() {
		return Result[C]{}, ErrNoInstructions
	}
	if b.feePayer == nil {
		return Result[C]{}, ErrNoFeePayer
	}
	resp, err := cancel.Call(ctx, func(ctx context.Context) (SendResponse, error) {
		return provider.SendAndConfirmTransaction(ctx, b, opts)
	})
	if err != nil {
		return Result[C]{}, err
	}
	return Result[C]{SendResponse: resp, Context: b.context}, nil
}
