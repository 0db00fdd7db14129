package core

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/axiomesh/govsim/contracts"
	"github.com/axiomesh/govsim/ledger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// First byte of the test bytecode selects which contract the mock ledger
// emulates at the deployed address.
const (
	tokenCode    byte = 0xa0
	governorCode byte = 0xa1
	targetCode   byte = 0xa2
)

const (
	mockVotingDelay     = 1
	mockVotingPeriod    = 5
	mockQuorumNumerator = 4
)

var _ ledger.Ledger = (*mockLedger)(nil)

var decoyTopic = crypto.Keccak256Hash([]byte("ProposalThresholdSet(uint256,uint256)"))

func revert(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ledger.ErrTransactionReverted, fmt.Sprintf(format, args...))
}

type checkpoint struct {
	block uint64
	value *big.Int
}

type checkpoints []checkpoint

func (c checkpoints) latest() *big.Int {
	if len(c) == 0 {
		return big.NewInt(0)
	}
	return c[len(c)-1].value
}

func (c checkpoints) at(block uint64) *big.Int {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].block <= block {
			return c[i].value
		}
	}
	return big.NewInt(0)
}

func (c checkpoints) push(block uint64, value *big.Int) checkpoints {
	if n := len(c); n > 0 && c[n-1].block == block {
		c[n-1].value = value
		return c
	}
	return append(c, checkpoint{block: block, value: value})
}

type mockToken struct {
	balances  map[common.Address]*big.Int
	delegates map[common.Address]common.Address
	votes     map[common.Address]checkpoints
	supply    checkpoints
}

type mockProposal struct {
	snapshot uint64
	deadline uint64
	against  *big.Int
	forVotes *big.Int
	abstain  *big.Int
	voted    map[common.Address]bool
	executed bool
}

type mockGovernor struct {
	token     common.Address
	proposals map[string]*mockProposal
}

type mockTarget struct {
	governor common.Address
	value    *big.Int
}

// mockLedger is an in-memory chain running just enough of ERC20Votes,
// GovernorCountingSimple and the Dao target to drive a simulation. Every
// transaction is mined in its own block; calls read at the head block.
type mockLedger struct {
	mu sync.Mutex

	accounts     []common.Address
	block        uint64
	nonces       map[common.Address]uint64
	contracts    map[common.Address]any
	rejectDeploy byte
	closed       bool
	txs          int

	// silentExecute drops the ProposalExecuted log
	silentExecute bool
}

func newMockLedger(n int) *mockLedger {
	accounts := make([]common.Address, n)
	for i := range accounts {
		accounts[i] = common.BigToAddress(big.NewInt(int64(0x1000 + i)))
	}
	return &mockLedger{
		accounts:  accounts,
		nonces:    make(map[common.Address]uint64),
		contracts: make(map[common.Address]any),
	}
}

func (m *mockLedger) Accounts(ctx context.Context) ([]common.Address, error) {
	return append([]common.Address(nil), m.accounts...), nil
}

func (m *mockLedger) BlockNumber(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.block, nil
}

func (m *mockLedger) Mine(ctx context.Context, n uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block += n
	return nil
}

func (m *mockLedger) Deploy(ctx context.Context, from common.Address, code []byte) (common.Address, *types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(code) == 0 {
		return common.Address{}, nil, fmt.Errorf("%w: empty code", ledger.ErrDeploymentRejected)
	}
	kind := code[0]
	if m.rejectDeploy != 0 && kind == m.rejectDeploy {
		return common.Address{}, nil, fmt.Errorf("%w: out of gas", ledger.ErrDeploymentRejected)
	}

	var contract any
	switch kind {
	case tokenCode:
		contract = &mockToken{
			balances:  make(map[common.Address]*big.Int),
			delegates: make(map[common.Address]common.Address),
			votes:     make(map[common.Address]checkpoints),
		}
	case governorCode:
		contract = &mockGovernor{
			token:     constructorAddress(code),
			proposals: make(map[string]*mockProposal),
		}
	case targetCode:
		contract = &mockTarget{
			governor: constructorAddress(code),
			value:    big.NewInt(0),
		}
	default:
		return common.Address{}, nil, fmt.Errorf("%w: unknown code %#x", ledger.ErrDeploymentRejected, kind)
	}

	addr := crypto.CreateAddress(from, m.nonces[from])
	m.nonces[from]++
	m.block++
	m.contracts[addr] = contract

	return addr, m.receipt(nil, addr), nil
}

func constructorAddress(code []byte) common.Address {
	if len(code) < 33 {
		return common.Address{}
	}
	return common.BytesToAddress(code[len(code)-32:])
}

func (m *mockLedger) receipt(logs []*types.Log, created common.Address) *types.Receipt {
	m.txs++
	hash := crypto.Keccak256Hash(big.NewInt(int64(m.txs)).Bytes())
	for _, lg := range logs {
		lg.BlockNumber = m.block
		lg.TxHash = hash
	}
	return &types.Receipt{
		Status:          types.ReceiptStatusSuccessful,
		TxHash:          hash,
		ContractAddress: created,
		BlockNumber:     new(big.Int).SetUint64(m.block),
		Logs:            logs,
	}
}

func (m *mockLedger) Transact(ctx context.Context, from common.Address, to common.Address, data []byte) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nonces[from]++
	m.block++
	logs, err := m.exec(from, to, data)
	if err != nil {
		return nil, err
	}
	return m.receipt(logs, common.Address{}), nil
}

func (m *mockLedger) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		contractABI abi.ABI
		view        func(name string, args []any) ([]any, error)
	)
	switch c := m.contracts[to].(type) {
	case *mockToken:
		contractABI, view = contracts.TokenABI, c.view
	case *mockGovernor:
		contractABI = contracts.GovernorABI
		view = func(name string, args []any) ([]any, error) { return m.governorView(c, name, args) }
	case *mockTarget:
		contractABI, view = contracts.TargetABI, c.view
	default:
		return nil, fmt.Errorf("%w: no contract at %s", ledger.ErrCallFailed, to)
	}

	method, args, err := decodeCall(contractABI, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrCallFailed, err)
	}
	out, err := view(method.Name, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrCallFailed, err)
	}
	return method.Outputs.Pack(out...)
}

func (m *mockLedger) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func decodeCall(contractABI abi.ABI, data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, revert("missing selector")
	}
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, revert("%v", err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, revert("%v", err)
	}
	return method, args, nil
}

func (m *mockLedger) exec(from, to common.Address, data []byte) ([]*types.Log, error) {
	switch c := m.contracts[to].(type) {
	case *mockToken:
		method, args, err := decodeCall(contracts.TokenABI, data)
		if err != nil {
			return nil, err
		}
		return nil, c.transact(m.block, from, method.Name, args)
	case *mockGovernor:
		method, args, err := decodeCall(contracts.GovernorABI, data)
		if err != nil {
			return nil, err
		}
		return m.governorTransact(c, to, from, method.Name, args)
	case *mockTarget:
		method, args, err := decodeCall(contracts.TargetABI, data)
		if err != nil {
			return nil, err
		}
		return nil, c.transact(from, method.Name, args)
	default:
		return nil, revert("no contract at %s", to)
	}
}

func (t *mockToken) balance(account common.Address) *big.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return big.NewInt(0)
}

func (t *mockToken) moveVotes(block uint64, src, dst common.Address, amount *big.Int) {
	if src == dst || amount.Sign() == 0 {
		return
	}
	if src != (common.Address{}) {
		t.votes[src] = t.votes[src].push(block, new(big.Int).Sub(t.votes[src].latest(), amount))
	}
	if dst != (common.Address{}) {
		t.votes[dst] = t.votes[dst].push(block, new(big.Int).Add(t.votes[dst].latest(), amount))
	}
}

func (t *mockToken) transact(block uint64, from common.Address, name string, args []any) error {
	switch name {
	case "mint":
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		t.balances[to] = new(big.Int).Add(t.balance(to), amount)
		t.supply = t.supply.push(block, new(big.Int).Add(t.supply.latest(), amount))
		t.moveVotes(block, common.Address{}, t.delegates[to], amount)
		return nil
	case "delegate":
		delegatee := args[0].(common.Address)
		old := t.delegates[from]
		t.delegates[from] = delegatee
		t.moveVotes(block, old, delegatee, t.balance(from))
		return nil
	default:
		return revert("token: %s is not a transaction", name)
	}
}

func (t *mockToken) view(name string, args []any) ([]any, error) {
	switch name {
	case "balanceOf":
		return []any{t.balance(args[0].(common.Address))}, nil
	case "getVotes":
		return []any{t.votes[args[0].(common.Address)].latest()}, nil
	case "delegates":
		return []any{t.delegates[args[0].(common.Address)]}, nil
	case "totalSupply":
		return []any{t.supply.latest()}, nil
	default:
		return nil, revert("token: %s is not a view", name)
	}
}

func (m *mockLedger) tokenOf(g *mockGovernor) *mockToken {
	t, _ := m.contracts[g.token].(*mockToken)
	if t == nil {
		return &mockToken{votes: make(map[common.Address]checkpoints)}
	}
	return t
}

func (m *mockLedger) quorum(g *mockGovernor, block uint64) *big.Int {
	q := new(big.Int).Mul(m.tokenOf(g).supply.at(block), big.NewInt(mockQuorumNumerator))
	return q.Div(q, big.NewInt(100))
}

func (m *mockLedger) proposalState(g *mockGovernor, p *mockProposal, block uint64) contracts.ProposalState {
	switch {
	case p.executed:
		return contracts.Executed
	case p.snapshot >= block:
		return contracts.Pending
	case p.deadline >= block:
		return contracts.Active
	}
	counted := new(big.Int).Add(p.forVotes, p.abstain)
	if m.quorum(g, p.snapshot).Cmp(counted) <= 0 && p.forVotes.Cmp(p.against) > 0 {
		return contracts.Succeeded
	}
	return contracts.Defeated
}

func (g *mockGovernor) proposal(id *big.Int) (*mockProposal, error) {
	p, ok := g.proposals[id.String()]
	if !ok {
		return nil, revert("Governor: unknown proposal id")
	}
	return p, nil
}

func hashArgs(args []any) (*big.Int, error) {
	return contracts.HashProposal(
		args[0].([]common.Address),
		args[1].([]*big.Int),
		args[2].([][]byte),
		common.Hash(args[3].([32]byte)),
	)
}

func (m *mockLedger) governorTransact(g *mockGovernor, self, from common.Address, name string, args []any) ([]*types.Log, error) {
	events := contracts.GovernorABI.Events

	switch name {
	case "propose":
		targets, values, calldatas, description := args[0].([]common.Address), args[1].([]*big.Int), args[2].([][]byte), args[3].(string)
		if len(targets) == 0 || len(targets) != len(values) || len(targets) != len(calldatas) {
			return nil, revert("Governor: invalid proposal length")
		}
		id, err := contracts.HashProposal(targets, values, calldatas, contracts.HashDescription(description))
		if err != nil {
			return nil, err
		}
		if _, ok := g.proposals[id.String()]; ok {
			return nil, revert("Governor: proposal already exists")
		}

		snapshot := m.block + mockVotingDelay
		p := &mockProposal{
			snapshot: snapshot,
			deadline: snapshot + mockVotingPeriod,
			against:  big.NewInt(0),
			forVotes: big.NewInt(0),
			abstain:  big.NewInt(0),
			voted:    make(map[common.Address]bool),
		}
		g.proposals[id.String()] = p

		ev := events[contracts.ProposalCreatedEvent]
		data, err := ev.Inputs.NonIndexed().Pack(
			id, from, targets, values, make([]string, len(targets)), calldatas,
			new(big.Int).SetUint64(p.snapshot), new(big.Int).SetUint64(p.deadline), description,
		)
		if err != nil {
			return nil, err
		}
		return []*types.Log{
			{Address: self, Topics: []common.Hash{decoyTopic}, Data: common.LeftPadBytes([]byte{1}, 32)},
			{Address: self, Topics: []common.Hash{ev.ID}, Data: data},
		}, nil

	case "castVote":
		id, support := args[0].(*big.Int), args[1].(uint8)
		p, err := g.proposal(id)
		if err != nil {
			return nil, err
		}
		if m.proposalState(g, p, m.block) != contracts.Active {
			return nil, revert("Governor: vote not currently active")
		}
		if p.voted[from] {
			return nil, revert("GovernorVotingSimple: vote already cast")
		}
		weight := m.tokenOf(g).votes[from].at(p.snapshot)
		switch contracts.VoteType(support) {
		case contracts.Against:
			p.against.Add(p.against, weight)
		case contracts.For:
			p.forVotes.Add(p.forVotes, weight)
		case contracts.Abstain:
			p.abstain.Add(p.abstain, weight)
		default:
			return nil, revert("GovernorVotingSimple: invalid value for enum VoteType")
		}
		p.voted[from] = true

		ev := events[contracts.VoteCastEvent]
		data, err := ev.Inputs.NonIndexed().Pack(id, support, weight, "")
		if err != nil {
			return nil, err
		}
		return []*types.Log{{
			Address: self,
			Topics:  []common.Hash{ev.ID, common.BytesToHash(from.Bytes())},
			Data:    data,
		}}, nil

	case "execute":
		id, err := hashArgs(args)
		if err != nil {
			return nil, err
		}
		p, err := g.proposal(id)
		if err != nil {
			return nil, err
		}
		if !m.proposalState(g, p, m.block).Executable() {
			return nil, revert("Governor: proposal not successful")
		}
		targets, calldatas := args[0].([]common.Address), args[2].([][]byte)
		for i, target := range targets {
			if _, err := m.exec(self, target, calldatas[i]); err != nil {
				return nil, err
			}
		}
		p.executed = true
		if m.silentExecute {
			return nil, nil
		}

		ev := events[contracts.ProposalExecutedEvent]
		data, err := ev.Inputs.NonIndexed().Pack(id)
		if err != nil {
			return nil, err
		}
		return []*types.Log{{Address: self, Topics: []common.Hash{ev.ID}, Data: data}}, nil

	default:
		return nil, revert("governor: %s is not a transaction", name)
	}
}

func (m *mockLedger) governorView(g *mockGovernor, name string, args []any) ([]any, error) {
	switch name {
	case "votingDelay":
		return []any{big.NewInt(mockVotingDelay)}, nil
	case "votingPeriod":
		return []any{big.NewInt(mockVotingPeriod)}, nil
	case "quorum":
		return []any{m.quorum(g, args[0].(*big.Int).Uint64())}, nil
	case "getVotes":
		block := args[1].(*big.Int).Uint64()
		if block > m.block {
			return nil, revert("ERC20Votes: future lookup")
		}
		return []any{m.tokenOf(g).votes[args[0].(common.Address)].at(block)}, nil
	case "hashProposal":
		id, err := hashArgs(args)
		if err != nil {
			return nil, err
		}
		return []any{id}, nil
	}

	p, err := g.proposal(args[0].(*big.Int))
	if err != nil {
		return nil, err
	}
	switch name {
	case "state":
		return []any{uint8(m.proposalState(g, p, m.block))}, nil
	case "proposalSnapshot":
		return []any{new(big.Int).SetUint64(p.snapshot)}, nil
	case "proposalDeadline":
		return []any{new(big.Int).SetUint64(p.deadline)}, nil
	case "proposalVotes":
		return []any{p.against, p.forVotes, p.abstain}, nil
	case "hasVoted":
		return []any{p.voted[args[1].(common.Address)]}, nil
	default:
		return nil, revert("governor: %s is not a view", name)
	}
}

func (t *mockTarget) transact(from common.Address, name string, args []any) error {
	if name != "updateValue" {
		return revert("dao: %s is not a transaction", name)
	}
	if from != t.governor {
		return revert("Only governor can update value")
	}
	t.value = new(big.Int).Set(args[0].(*big.Int))
	return nil
}

func (t *mockTarget) view(name string, args []any) ([]any, error) {
	switch name {
	case "daoVal":
		return []any{t.value}, nil
	case "governor":
		return []any{t.governor}, nil
	default:
		return nil, revert("dao: %s is not a view", name)
	}
}
