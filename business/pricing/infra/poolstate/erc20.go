package poolstate

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// erc20BalanceOfSelector and syncEventTopic are derived at init from their
// Solidity signatures rather than hardcoded hex, the same
// keccak-the-signature approach the now-superseded Uniswap QuoterV2 pack/
// unpack code used for its own selectors.
var (
	erc20BalanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	syncEventTopic         = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))
	uint256Args            = mustArgs("uint256")
	uint112PairArgs        = mustArgs("uint112", "uint112")
)

func mustArgs(types ...string) abi.Arguments {
	args := make(abi.Arguments, len(types))
	for i, t := range types {
		ty, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(fmt.Sprintf("poolstate: invalid abi type %q: %v", t, err))
		}
		args[i] = abi.Argument{Type: ty}
	}
	return args
}

// balanceOfCalldata builds the calldata for ERC20.balanceOf(holder).
func balanceOfCalldata(holder common.Address) []byte {
	data := make([]byte, 0, 36)
	data = append(data, erc20BalanceOfSelector...)
	padded := common.LeftPadBytes(holder.Bytes(), 32)
	return append(data, padded...)
}

// decodeUint256 unpacks a single uint256 return value (balanceOf's return
// shape).
func decodeUint256(data []byte) (*big.Int, error) {
	values, err := uint256Args.UnpackValues(data)
	if err != nil || len(values) != 1 {
		return nil, fmt.Errorf("poolstate: unpack uint256: %w", err)
	}
	n, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("poolstate: unexpected return type %T", values[0])
	}
	return n, nil
}

// SyncEventTopic is the keccak256 of the standard constant-product pool
// Sync(uint112,uint112) event signature, used to filter reserve-update logs.
func SyncEventTopic() common.Hash { return syncEventTopic }

// decodeSync unpacks a Sync(uint112 reserve0, uint112 reserve1) log body.
func decodeSync(data []byte) (reserve0, reserve1 *big.Int, err error) {
	values, err := uint112PairArgs.UnpackValues(data)
	if err != nil || len(values) != 2 {
		return nil, nil, fmt.Errorf("poolstate: unpack sync log: %w", err)
	}
	r0, ok0 := values[0].(*big.Int)
	r1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("poolstate: unexpected sync log value types")
	}
	return r0, r1, nil
}
