package domain

import "strings"

// PoolIdentifier is an opaque string of the form "<venueKey>_<payload>",
// unique across all venues. Equality is case-insensitive (spec.md §3).
type PoolIdentifier string

// NewPoolIdentifier joins a venue key and a venue-defined payload.
func NewPoolIdentifier(venueKey, payload string) PoolIdentifier {
	return PoolIdentifier(venueKey + "_" + payload)
}

// Equals compares identifiers case-insensitively.
func (p PoolIdentifier) Equals(other PoolIdentifier) bool {
	return strings.EqualFold(string(p), string(other))
}

func (p PoolIdentifier) String() string { return string(p) }

// SortedPairPayload builds the stable payload used by constant-product AMM
// identifiers: the pair's two token addresses, lexically sorted so the
// identifier is independent of quote direction.
func SortedPairPayload(a, b Token) string {
	x, y := a.Address(), b.Address()
	if x > y {
		x, y = y, x
	}
	return x + "_" + y
}

// VirtualPoolPayload builds the payload for a synthetic pool derived from a
// jk-pair and an ik-pair sharing common token k (spec.md §3, §4.1).
func VirtualPoolPayload(jkPoolID, ikPoolID PoolIdentifier) string {
	return string(jkPoolID) + "_" + string(ikPoolID)
}

// DiagnosticPoolID is the fixed poolId used for the fee-on-transfer skip
// diagnostic envelope (spec.md §4.5, scenario S4).
const DiagnosticPoolID PoolIdentifier = "isSrcTokenTransferFeeToBeExchanged_pool"
