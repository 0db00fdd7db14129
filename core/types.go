package core

import (
	"errors"
	"math/big"

	"github.com/axiomesh/govsim/contracts"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrStateMismatch      = errors.New("target value does not match the proposed value")
	ErrNotBootstrapped    = errors.New("voting weight not minted and delegated")
	ErrNotDeployed        = errors.New("contracts not deployed")
	ErrNoProposal         = errors.New("no proposal submitted")
	ErrEventNotFound      = errors.New("event not found in receipt")
	ErrProposalIDMismatch = errors.New("proposal id does not match hashProposal")
	ErrAccountIndex       = errors.New("account index out of range")
)

// Account is a participant's token position as read back from the token.
type Account struct {
	Address   common.Address
	Balance   *big.Int
	Delegatee common.Address
	Votes     *big.Int
}

// Deployment is the set of contracts a run created.
type Deployment struct {
	Token    common.Address
	Governor common.Address
	Target   common.Address
}

func (d Deployment) Empty() bool {
	return d.Token == (common.Address{}) || d.Governor == (common.Address{}) || d.Target == (common.Address{})
}

// Proposal is what the simulator submits. ID, Proposer, VoteStart and VoteEnd
// come from the governor's ProposalCreated event.
type Proposal struct {
	ID              *big.Int
	Proposer        common.Address
	Targets         []common.Address
	Values          []*big.Int
	Calldatas       [][]byte
	Description     string
	DescriptionHash common.Hash
	VoteStart       uint64
	VoteEnd         uint64
}

func NewProposal(description string) *Proposal {
	return &Proposal{
		Description:     description,
		DescriptionHash: contracts.HashDescription(description),
	}
}

// AddCall appends one (target, value, calldata) action.
func (p *Proposal) AddCall(target common.Address, value *big.Int, calldata []byte) {
	p.Targets = append(p.Targets, target)
	p.Values = append(p.Values, value)
	p.Calldatas = append(p.Calldatas, calldata)
}

// Hash is the id the governor derives for this proposal's content.
func (p *Proposal) Hash() (*big.Int, error) {
	return contracts.HashProposal(p.Targets, p.Values, p.Calldatas, p.DescriptionHash)
}

// Tally is the GovernorCountingSimple vote split.
type Tally struct {
	Against *big.Int
	For     *big.Int
	Abstain *big.Int
}

// Ballot is a decoded VoteCast event.
type Ballot struct {
	Voter   common.Address
	Support contracts.VoteType
	Weight  *big.Int
	Block   uint64
}
