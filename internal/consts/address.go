package consts

import (
	"strings"

	"github.com/blocto/solana-go-sdk/common"
)

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	//  Programs
	TokenProgram2022Str   = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	TokenMetaProgramIdStr = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

	// 常用 mint
	WSOLMintStr    = "So11111111111111111111111111111111111111112"
	USDCMintStr    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMintStr    = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	JitoSOLMintStr = "J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn"
	MSOLMintStr    = "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So"
)

// 公钥形式，用于链上比对
var (
	TokenProgram2022 = common.PublicKeyFromString(TokenProgram2022Str)
	TokenMetaProgram = common.PublicKeyFromString(TokenMetaProgramIdStr)
)

// knownMints 命令行中可直接使用的 mint 别名
var knownMints = map[string]string{
	"wsol":    WSOLMintStr,
	"sol":     WSOLMintStr,
	"usdc":    USDCMintStr,
	"usdt":    USDTMintStr,
	"jitosol": JitoSOLMintStr,
	"msol":    MSOLMintStr,
}

// ResolveMint 别名（不区分大小写）换成 base58 地址，非别名原样返回
func ResolveMint(s string) string {
	if addr, ok := knownMints[strings.ToLower(s)]; ok {
		return addr
	}
	return s
}
