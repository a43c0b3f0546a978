package consts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveMint(t *testing.T) {
	assert.Equal(t, USDCMintStr, ResolveMint("USDC"))
	assert.Equal(t, WSOLMintStr, ResolveMint("sol"))
	assert.Equal(t, "SomeOtherMint111", ResolveMint("SomeOtherMint111"))
	assert.Equal(t, TokenMetaProgramIdStr, TokenMetaProgram.ToBase58())
}
