package core

import (
	"context"
	"fmt"
	"math/big"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/govsim/contracts"
	"github.com/axiomesh/govsim/ledger"
	"github.com/axiomesh/govsim/repo"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const (
	PhaseDeploy       = "deploy"
	PhaseBootstrap    = "bootstrap"
	PhasePropose      = "propose"
	PhaseVotingDelay  = "voting-delay"
	PhaseVote         = "vote"
	PhaseVotingPeriod = "voting-period"
	PhaseExecute      = "execute"
	PhaseVerify       = "verify"
)

// Simulator drives one governance proposal from deployment to execution
// against a test ledger. Every step waits for the previous one to confirm;
// any failure ends the run and already deployed contracts stay orphaned.
type Simulator struct {
	Ledger  ledger.Ledger
	Logger  *logrus.Logger
	Journal *Journal
	Config  *repo.Config

	owner  common.Address
	voters []common.Address

	deployment Deployment
	token      *Token
	governor   *Governor
	target     *Target

	proposal     *Proposal
	bootstrapped bool
	accounts     []Account
}

type step struct {
	phase string
	run   func(ctx context.Context) error
}

func NewSimulator(config *repo.Config, l ledger.Ledger, journal *Journal) *Simulator {
	logger := log.New()
	logger.SetLevel(log.ParseLevel(config.Log.Level))

	return &Simulator{
		Ledger:  l,
		Logger:  logger,
		Journal: journal,
		Config:  config,
	}
}

// Run executes deploy, bootstrap, propose, voting delay, votes, voting period,
// execute and verify in that order.
func (s *Simulator) Run(ctx context.Context) error {
	steps := []step{
		{PhaseDeploy, s.Deploy},
		{PhaseBootstrap, s.Bootstrap},
		{PhasePropose, s.Propose},
		{PhaseVotingDelay, s.passVotingDelay},
		{PhaseVote, s.voteFor},
		{PhaseVotingPeriod, s.passVotingPeriod},
		{PhaseExecute, s.Execute},
	}
	if s.Config.Simulation.Verify {
		steps = append(steps, step{PhaseVerify, s.Verify})
	} else {
		steps = append(steps, step{PhaseVerify, s.logValue})
	}

	s.Journal.Reset()
	for _, st := range steps {
		if err := st.run(ctx); err != nil {
			s.Logger.WithFields(logrus.Fields{"phase": st.phase, "err": err}).Error("simulation aborted")
			return fmt.Errorf("%s: %w", st.phase, err)
		}
		s.Journal.SetPhase(st.phase)
	}

	s.Logger.Info("simulation finished")
	return nil
}

func (s *Simulator) loadAccounts(ctx context.Context) error {
	accounts, err := s.Ledger.Accounts(ctx)
	if err != nil {
		return err
	}

	pick := func(i uint) (common.Address, error) {
		if int(i) >= len(accounts) {
			return common.Address{}, fmt.Errorf("%w: %d of %d", ErrAccountIndex, i, len(accounts))
		}
		return accounts[i], nil
	}

	owner, err := pick(s.Config.Accounts.Owner)
	if err != nil {
		return err
	}
	voters := make([]common.Address, 0, len(s.Config.Accounts.Voters))
	for _, i := range s.Config.Accounts.Voters {
		v, err := pick(i)
		if err != nil {
			return err
		}
		voters = append(voters, v)
	}

	s.owner = owner
	s.voters = voters
	s.Logger.WithFields(logrus.Fields{"owner": owner, "voters": voters}).Debug("accounts loaded")
	return nil
}

// participants are the owner and the voters, each listed once.
func (s *Simulator) participants() []common.Address {
	seen := map[common.Address]bool{s.owner: true}
	list := []common.Address{s.owner}
	for _, v := range s.voters {
		if !seen[v] {
			seen[v] = true
			list = append(list, v)
		}
	}
	return list
}

func (s *Simulator) bind(d Deployment) {
	s.deployment = d
	s.token = NewToken(d.Token, s.Ledger)
	s.governor = NewGovernor(d.Governor, s.Ledger)
	s.target = NewTarget(d.Target, s.Ledger)
}

// Deploy creates token, governor(token) and target(governor) in dependency order.
// All artifacts are read before the first transaction is sent.
func (s *Simulator) Deploy(ctx context.Context) error {
	if err := s.loadAccounts(ctx); err != nil {
		return err
	}

	names := []string{s.Config.Artifacts.Token, s.Config.Artifacts.Governor, s.Config.Artifacts.Target}
	artifacts := make([]*contracts.Artifact, len(names))
	for i, name := range names {
		a, err := contracts.LoadArtifact(s.Config.ArtifactPath(name))
		if err != nil {
			return err
		}
		artifacts[i] = a
	}

	token, err := s.deploy(ctx, artifacts[0], contracts.TokenABI)
	if err != nil {
		return err
	}
	governor, err := s.deploy(ctx, artifacts[1], contracts.GovernorABI, token)
	if err != nil {
		return err
	}
	target, err := s.deploy(ctx, artifacts[2], contracts.TargetABI, governor)
	if err != nil {
		return err
	}

	d := Deployment{Token: token, Governor: governor, Target: target}
	s.bind(d)
	s.Journal.SaveDeployment(d)
	return nil
}

func (s *Simulator) deploy(ctx context.Context, a *contracts.Artifact, contractABI abi.ABI, args ...any) (common.Address, error) {
	data, err := a.DeployData(contractABI, args...)
	if err != nil {
		return common.Address{}, err
	}
	addr, receipt, err := s.Ledger.Deploy(ctx, s.owner, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s: %w", a.Name, err)
	}

	s.Logger.WithFields(logrus.Fields{
		"contract": a.Name,
		"address":  addr,
		"block":    receipt.BlockNumber,
	}).Info("contract deployed")
	return addr, nil
}

// Attach binds the contracts recorded by a previous run.
func (s *Simulator) Attach(ctx context.Context) error {
	d, ok := s.Journal.Deployment()
	if !ok {
		return ErrNotDeployed
	}
	if err := s.loadAccounts(ctx); err != nil {
		return err
	}
	s.bind(d)

	p, err := s.Journal.Proposal()
	if err != nil {
		return err
	}
	s.proposal = p
	return nil
}

// Bootstrap mints the configured amount to every participant, then has each
// delegate to itself. Weight only counts from the block it was delegated in,
// so this has to confirm before Propose.
func (s *Simulator) Bootstrap(ctx context.Context) error {
	if s.token == nil {
		return ErrNotDeployed
	}
	amount := new(big.Int).SetUint64(s.Config.Simulation.MintAmount)
	accounts := s.participants()

	for _, acct := range accounts {
		if _, err := s.token.Mint(ctx, s.owner, acct, amount); err != nil {
			return fmt.Errorf("mint to %s: %w", acct, err)
		}
	}
	s.Logger.WithFields(logrus.Fields{"amount": amount, "accounts": len(accounts)}).Info("minted voting tokens")

	for _, acct := range accounts {
		receipt, err := s.token.Delegate(ctx, acct, acct)
		if err != nil {
			return fmt.Errorf("delegate %s: %w", acct, err)
		}
		s.Logger.WithFields(logrus.Fields{"account": acct, "block": receipt.BlockNumber}).Debug("self delegated")
	}

	states, err := s.AccountStates(ctx)
	if err != nil {
		return err
	}
	for _, a := range states {
		s.Logger.WithFields(logrus.Fields{
			"account":   a.Address,
			"balance":   a.Balance,
			"delegatee": a.Delegatee,
			"votes":     a.Votes,
		}).Info("voting weight ready")
	}

	s.accounts = states
	s.bootstrapped = true
	return nil
}

// AccountStates reads balance, delegatee and current votes of every participant.
func (s *Simulator) AccountStates(ctx context.Context) ([]Account, error) {
	if s.token == nil {
		return nil, ErrNotDeployed
	}
	participants := s.participants()
	states := make([]Account, 0, len(participants))
	for _, addr := range participants {
		balance, err := s.token.BalanceOf(ctx, addr)
		if err != nil {
			return nil, err
		}
		delegatee, err := s.token.Delegates(ctx, addr)
		if err != nil {
			return nil, err
		}
		votes, err := s.token.GetVotes(ctx, addr)
		if err != nil {
			return nil, err
		}
		states = append(states, Account{
			Address:   addr,
			Balance:   balance,
			Delegatee: delegatee,
			Votes:     votes,
		})
	}
	return states, nil
}

// Propose submits updateValue(proposed_value) on the target.
func (s *Simulator) Propose(ctx context.Context) error {
	if s.governor == nil {
		return ErrNotDeployed
	}
	if !s.bootstrapped {
		return ErrNotBootstrapped
	}

	value := new(big.Int).SetUint64(s.Config.Simulation.ProposedValue)
	calldata, err := s.target.UpdateValueCalldata(value)
	if err != nil {
		return err
	}

	p := NewProposal(s.Config.Simulation.Description)
	p.AddCall(s.target.Address, big.NewInt(0), calldata)

	s.Logger.WithField("description", p.Description).Info("proposing")
	receipt, err := s.governor.Propose(ctx, s.owner, p)
	if err != nil {
		return err
	}

	expected, err := p.Hash()
	if err != nil {
		return err
	}
	if expected.Cmp(p.ID) != 0 {
		return fmt.Errorf("%w: event %s, computed %s", ErrProposalIDMismatch, p.ID, expected)
	}

	s.proposal = p
	if err := s.Journal.SaveProposal(p); err != nil {
		return err
	}

	s.Logger.WithFields(logrus.Fields{
		"id":         p.ID,
		"block":      receipt.BlockNumber,
		"vote_start": p.VoteStart,
		"vote_end":   p.VoteEnd,
	}).Info("proposal created")
	return nil
}

// AdvanceBlocks mines n blocks. Only test ledgers can do this.
func (s *Simulator) AdvanceBlocks(ctx context.Context, n uint64) error {
	if err := s.Ledger.Mine(ctx, n); err != nil {
		return err
	}
	block, err := s.Ledger.BlockNumber(ctx)
	if err != nil {
		return err
	}
	s.Logger.WithFields(logrus.Fields{"moved": n, "block": block}).Info("advanced blocks")
	return nil
}

func (s *Simulator) passVotingDelay(ctx context.Context) error {
	n := s.Config.Blocks.AfterPropose
	if n == 0 {
		delay, err := s.governor.VotingDelay(ctx)
		if err != nil {
			return err
		}
		n = delay.Uint64() + 1
	}
	if err := s.AdvanceBlocks(ctx, n); err != nil {
		return err
	}
	_, err := s.logState(ctx)
	return err
}

func (s *Simulator) passVotingPeriod(ctx context.Context) error {
	n := s.Config.Blocks.AfterVote
	if n == 0 {
		period, err := s.governor.VotingPeriod(ctx)
		if err != nil {
			return err
		}
		n = period.Uint64()
	}
	if err := s.AdvanceBlocks(ctx, n); err != nil {
		return err
	}

	tally, err := s.Tally(ctx)
	if err != nil {
		return err
	}
	s.Logger.WithFields(logrus.Fields{
		"for":     tally.For,
		"against": tally.Against,
		"abstain": tally.Abstain,
	}).Info("final result")
	_, err = s.logState(ctx)
	return err
}

func (s *Simulator) voteFor(ctx context.Context) error {
	for _, v := range s.voters {
		if _, err := s.Vote(ctx, v, contracts.For); err != nil {
			return err
		}
	}
	return nil
}

// Vote casts support on the current proposal from voter. The governor decides
// whether voting is open.
func (s *Simulator) Vote(ctx context.Context, voter common.Address, support contracts.VoteType) (*Ballot, error) {
	if s.proposal == nil {
		return nil, ErrNoProposal
	}
	b, err := s.governor.CastVote(ctx, voter, s.proposal.ID, support)
	if err != nil {
		return nil, fmt.Errorf("vote by %s: %w", voter, err)
	}
	s.Logger.WithFields(logrus.Fields{
		"voter":   b.Voter,
		"support": b.Support,
		"weight":  b.Weight,
		"block":   b.Block,
	}).Info("vote cast")
	return b, nil
}

// Execute replays the proposal's actions with the description hash.
func (s *Simulator) Execute(ctx context.Context) error {
	if s.proposal == nil {
		return ErrNoProposal
	}
	receipt, err := s.governor.Execute(ctx, s.owner, s.proposal)
	if err != nil {
		return err
	}
	s.Logger.WithFields(logrus.Fields{"id": s.proposal.ID, "block": receipt.BlockNumber}).Info("proposal executed")
	return nil
}

// Verify reads the target and fails with ErrStateMismatch unless it holds the
// proposed value.
func (s *Simulator) Verify(ctx context.Context) error {
	v, err := s.Value(ctx)
	if err != nil {
		return err
	}
	expected := new(big.Int).SetUint64(s.Config.Simulation.ProposedValue)
	if v.Cmp(expected) != 0 {
		return fmt.Errorf("%w: daoVal %s, proposed %s", ErrStateMismatch, v, expected)
	}
	return nil
}

func (s *Simulator) logValue(ctx context.Context) error {
	_, err := s.Value(ctx)
	return err
}

// Value reads daoVal from the target.
func (s *Simulator) Value(ctx context.Context) (*big.Int, error) {
	if s.target == nil {
		return nil, ErrNotDeployed
	}
	v, err := s.target.Value(ctx)
	if err != nil {
		return nil, err
	}
	s.Logger.WithField("daoVal", v).Info("target value")
	return v, nil
}

func (s *Simulator) State(ctx context.Context) (contracts.ProposalState, error) {
	if s.proposal == nil {
		return 0, ErrNoProposal
	}
	return s.governor.State(ctx, s.proposal.ID)
}

// Quorum is the votes the proposal needs, taken at its snapshot block.
func (s *Simulator) Quorum(ctx context.Context) (*big.Int, error) {
	if s.proposal == nil {
		return nil, ErrNoProposal
	}
	return s.governor.Quorum(ctx, s.proposal.VoteStart)
}

// Tally is the current vote split of the proposal.
func (s *Simulator) Tally(ctx context.Context) (*Tally, error) {
	if s.proposal == nil {
		return nil, ErrNoProposal
	}
	return s.governor.ProposalVotes(ctx, s.proposal.ID)
}

func (s *Simulator) logState(ctx context.Context) (contracts.ProposalState, error) {
	state, err := s.State(ctx)
	if err != nil {
		return 0, err
	}
	block, err := s.Ledger.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	s.Logger.WithFields(logrus.Fields{"state": state, "block": block}).Info("proposal state")
	return state, nil
}

// VotingPower is the account's current delegated weight on the token.
func (s *Simulator) VotingPower(ctx context.Context, account common.Address) (*big.Int, error) {
	if s.token == nil {
		return nil, ErrNotDeployed
	}
	return s.token.GetVotes(ctx, account)
}

// SnapshotVotingPower is the weight the governor counts for the current
// proposal, taken at its snapshot block.
func (s *Simulator) SnapshotVotingPower(ctx context.Context, account common.Address) (*big.Int, error) {
	if s.proposal == nil {
		return nil, ErrNoProposal
	}
	return s.governor.GetVotes(ctx, account, s.proposal.VoteStart)
}

func (s *Simulator) Owner() common.Address {
	return s.owner
}

func (s *Simulator) Voters() []common.Address {
	return s.voters
}

func (s *Simulator) Deployment() Deployment {
	return s.deployment
}

// Accounts are the participant states recorded at the end of Bootstrap.
func (s *Simulator) Accounts() []Account {
	return s.accounts
}

func (s *Simulator) Proposal() *Proposal {
	return s.proposal
}

func (s *Simulator) Stop() error {
	s.Ledger.Close()
	return s.Journal.Close()
}
