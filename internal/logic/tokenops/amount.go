package tokenops

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// SolDecimals 1 SOL = 10^9 lamports
const SolDecimals uint8 = 9

var ErrInvalidAmount = errors.New("invalid token amount")

// ToBaseUnits 把 UI 数量（如 "1.5"）换算成链上最小单位，小数位超出 decimals 视为非法
func ToBaseUnits(ui string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(ui)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, ui, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, ui)
	}
	base := d.Shift(int32(decimals))
	if !base.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, ui, decimals)
	}
	n := base.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows u64", ErrInvalidAmount, ui)
	}
	return n.Uint64(), nil
}

// FromBaseUnits 最小单位 → UI 数量
func FromBaseUnits(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}
