package txbuilder

import (
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

// Signer 签名者句柄，按公钥判等去重
type Signer interface {
	PublicKey() common.PublicKey
	Sign(message []byte) ([]byte, error)
}

// KeypairSigner 本地私钥签名
type KeypairSigner struct {
	account types.Account
}

func NewKeypairSigner(account types.Account) KeypairSigner {
	return KeypairSigner{account: account}
}

func (k KeypairSigner) PublicKey() common.PublicKey {
	return k.account.PublicKey
}

func (k KeypairSigner) Sign(message []byte) ([]byte, error) {
	return k.account.Sign(message), nil
}

// dedupeSigners 按首次出现顺序去重
func dedupeSigners(signers []Signer) []Signer {
	seen := make(map[common.PublicKey]struct{}, len(signers))
	result := make([]Signer, 0, len(signers))
	for _, s := range signers {
		if s == nil {
			continue
		}
		key := s.PublicKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, s)
	}
	return result
}
