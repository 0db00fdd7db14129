// Package contracts holds the ABIs, artifacts and hashing rules of the
// governance contracts driven by the simulator: GovToken (ERC20Votes),
// DaoGovernor (OpenZeppelin Governor) and Dao, the proposal target.
package contracts

import (
	_ "embed"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	ProposalCreatedEvent  = "ProposalCreated"
	VoteCastEvent         = "VoteCast"
	ProposalExecutedEvent = "ProposalExecuted"
)

var (
	//go:embed abi/GovToken.json
	tokenABIJSON string

	//go:embed abi/DaoGovernor.json
	governorABIJSON string

	//go:embed abi/Dao.json
	targetABIJSON string
)

var (
	TokenABI    = mustParseABI(tokenABIJSON)
	GovernorABI = mustParseABI(governorABIJSON)
	TargetABI   = mustParseABI(targetABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
