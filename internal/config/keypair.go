package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"gopkg.in/yaml.v3"
)

// LoadKeypair 读取 Solana CLI 生成的密钥文件。JSON 数组是合法的 YAML flow sequence，直接用 yaml 解析。
func LoadKeypair(path string) (types.Account, error) {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Account{}, fmt.Errorf("read keypair %s: %w", path, err)
	}
	var raw []byte
	var ints []int
	if err := yaml.Unmarshal(data, &ints); err != nil {
		return types.Account{}, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	for i, v := range ints {
		if v < 0 || v > 255 {
			return types.Account{}, fmt.Errorf("parse keypair %s: byte %d out of range (%d)", path, i, v)
		}
		raw = append(raw, byte(v))
	}
	account, err := types.AccountFromBytes(raw)
	if err != nil {
		return types.Account{}, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return account, nil
}
