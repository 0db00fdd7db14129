package core

import (
	"context"
	"fmt"
	"math/big"

	"github.com/axiomesh/govsim/contracts"
	"github.com/axiomesh/govsim/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Governor wraps the OpenZeppelin Governor that owns the proposal lifecycle.
type Governor struct {
	boundContract
}

type proposalCreated struct {
	ProposalId  *big.Int
	Proposer    common.Address
	Targets     []common.Address
	Values      []*big.Int
	Signatures  []string
	Calldatas   [][]byte
	StartBlock  *big.Int
	EndBlock    *big.Int
	Description string
}

type proposalExecuted struct {
	ProposalId *big.Int
}

type voteCast struct {
	Voter      common.Address
	ProposalId *big.Int
	Support    uint8
	Weight     *big.Int
	Reason     string
}

func NewGovernor(address common.Address, l ledger.Ledger) *Governor {
	return &Governor{newBoundContract(address, contracts.GovernorABI, l)}
}

// Propose submits p and fills in ID, Proposer, VoteStart and VoteEnd from the
// ProposalCreated event.
func (g *Governor) Propose(ctx context.Context, from common.Address, p *Proposal) (*types.Receipt, error) {
	receipt, err := g.transact(ctx, from, "propose", p.Targets, p.Values, p.Calldatas, p.Description)
	if err != nil {
		return receipt, err
	}

	var ev proposalCreated
	if _, err := g.unpackEvent(receipt, contracts.ProposalCreatedEvent, &ev); err != nil {
		return receipt, err
	}
	p.ID = ev.ProposalId
	p.Proposer = ev.Proposer
	p.VoteStart = ev.StartBlock.Uint64()
	p.VoteEnd = ev.EndBlock.Uint64()
	return receipt, nil
}

func (g *Governor) CastVote(ctx context.Context, from common.Address, proposalID *big.Int, support contracts.VoteType) (*Ballot, error) {
	receipt, err := g.transact(ctx, from, "castVote", proposalID, uint8(support))
	if err != nil {
		return nil, err
	}

	var ev voteCast
	if _, err := g.unpackEvent(receipt, contracts.VoteCastEvent, &ev); err != nil {
		return nil, err
	}
	if ev.ProposalId.Cmp(proposalID) != 0 {
		return nil, fmt.Errorf("vote cast for proposal %s, expected %s", ev.ProposalId, proposalID)
	}
	return &Ballot{
		Voter:   ev.Voter,
		Support: contracts.VoteType(ev.Support),
		Weight:  ev.Weight,
		Block:   receipt.BlockNumber.Uint64(),
	}, nil
}

// Execute takes the description hash, not the id; the governor re-derives the id
// and reports it in ProposalExecuted.
func (g *Governor) Execute(ctx context.Context, from common.Address, p *Proposal) (*types.Receipt, error) {
	receipt, err := g.transact(ctx, from, "execute", p.Targets, p.Values, p.Calldatas, [32]byte(p.DescriptionHash))
	if err != nil {
		return receipt, err
	}

	var ev proposalExecuted
	if _, err := g.unpackEvent(receipt, contracts.ProposalExecutedEvent, &ev); err != nil {
		return receipt, err
	}
	if p.ID != nil && ev.ProposalId.Cmp(p.ID) != 0 {
		return receipt, fmt.Errorf("%w: executed %s, expected %s", ErrProposalIDMismatch, ev.ProposalId, p.ID)
	}
	return receipt, nil
}

func (g *Governor) State(ctx context.Context, proposalID *big.Int) (contracts.ProposalState, error) {
	res, err := g.call(ctx, "state", proposalID)
	if err != nil {
		return 0, err
	}
	s, ok := res[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("state: unexpected output %T", res[0])
	}
	return contracts.ProposalState(s), nil
}

func (g *Governor) HashProposal(ctx context.Context, p *Proposal) (*big.Int, error) {
	return g.callBig(ctx, "hashProposal", p.Targets, p.Values, p.Calldatas, [32]byte(p.DescriptionHash))
}

// GetVotes is the account's weight at a past block, as the governor counts it.
func (g *Governor) GetVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error) {
	return g.callBig(ctx, "getVotes", account, new(big.Int).SetUint64(block))
}

func (g *Governor) HasVoted(ctx context.Context, proposalID *big.Int, account common.Address) (bool, error) {
	res, err := g.call(ctx, "hasVoted", proposalID, account)
	if err != nil {
		return false, err
	}
	voted, ok := res[0].(bool)
	if !ok {
		return false, fmt.Errorf("hasVoted: unexpected output %T", res[0])
	}
	return voted, nil
}

func (g *Governor) ProposalSnapshot(ctx context.Context, proposalID *big.Int) (*big.Int, error) {
	return g.callBig(ctx, "proposalSnapshot", proposalID)
}

func (g *Governor) ProposalDeadline(ctx context.Context, proposalID *big.Int) (*big.Int, error) {
	return g.callBig(ctx, "proposalDeadline", proposalID)
}

func (g *Governor) ProposalVotes(ctx context.Context, proposalID *big.Int) (*Tally, error) {
	res, err := g.call(ctx, "proposalVotes", proposalID)
	if err != nil {
		return nil, err
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("proposalVotes: expected 3 outputs, got %d", len(res))
	}
	t := &Tally{}
	for i, dst := range []**big.Int{&t.Against, &t.For, &t.Abstain} {
		v, ok := res[i].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("proposalVotes: unexpected output %T", res[i])
		}
		*dst = v
	}
	return t, nil
}

func (g *Governor) VotingDelay(ctx context.Context) (*big.Int, error) {
	return g.callBig(ctx, "votingDelay")
}

func (g *Governor) VotingPeriod(ctx context.Context) (*big.Int, error) {
	return g.callBig(ctx, "votingPeriod")
}

func (g *Governor) Quorum(ctx context.Context, block uint64) (*big.Int, error) {
	return g.callBig(ctx, "quorum", new(big.Int).SetUint64(block))
}
