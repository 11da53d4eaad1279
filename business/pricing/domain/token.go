package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeSentinel is the address every network uses in place of a real
// token contract to mean "this network's native coin." It must be wrapped
// to its canonical wrapped form (e.g. WETH) before entering pricing; see
// WrapNative.
const NativeSentinel = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// Token is a 20-byte address plus the decimal precision its ERC20 (or
// native-equivalent) balance is denominated in. Two tokens with equal
// address are identical regardless of symbol (spec.md §3).
type Token struct {
	address  string // lowercase hex, 0x-prefixed
	decimals uint8
}

// NewToken normalizes address to lowercase hex and validates decimals is in
// [0, 38]. Panics on a malformed address or out-of-range decimals, mirroring
// the teacher's asset.NewAsset panic-on-construction-error convention.
func NewToken(address string, decimals uint8) Token {
	if !common.IsHexAddress(address) {
		panic("domain: invalid token address: " + address)
	}
	if decimals > 38 {
		panic("domain: token decimals out of range [0,38]")
	}
	return Token{address: strings.ToLower(address), decimals: decimals}
}

// Address returns the lowercase hex address.
func (t Token) Address() string { return t.address }

// Decimals returns the token's decimal precision.
func (t Token) Decimals() uint8 { return t.decimals }

// IsNative reports whether t is the native-coin sentinel.
func (t Token) IsNative() bool { return t.address == NativeSentinel }

// Equals compares tokens by address only, per spec.md §3.
func (t Token) Equals(other Token) bool { return t.address == other.address }

func (t Token) String() string { return t.address }

// WrapNative returns wrapped if t is the native sentinel, otherwise t
// unchanged. Adapters call this before using a token as a pricing input,
// per spec.md §3's wrap-before-pricing rule.
func WrapNative(t Token, wrapped Token) Token {
	if t.IsNative() {
		return wrapped
	}
	return t
}
