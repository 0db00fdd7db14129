package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var proposalHashArgs = abi.Arguments{
	{Type: mustNewType("address[]")},
	{Type: mustNewType("uint256[]")},
	{Type: mustNewType("bytes[]")},
	{Type: mustNewType("bytes32")},
}

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// HashDescription is keccak256 of the raw description, the value execute expects.
func HashDescription(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// HashProposal computes the governor proposal id:
// uint256(keccak256(abi.encode(targets, values, calldatas, descriptionHash))).
func HashProposal(targets []common.Address, values []*big.Int, calldatas [][]byte, descriptionHash common.Hash) (*big.Int, error) {
	encoded, err := proposalHashArgs.Pack(targets, values, calldatas, [32]byte(descriptionHash))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(crypto.Keccak256(encoded)), nil
}
