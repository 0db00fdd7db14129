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

// Token is the ERC20Votes governance token.
type Token struct {
	boundContract
}

func NewToken(address common.Address, l ledger.Ledger) *Token {
	return &Token{newBoundContract(address, contracts.TokenABI, l)}
}

func (t *Token) Mint(ctx context.Context, from, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return t.transact(ctx, from, "mint", to, amount)
}

func (t *Token) Delegate(ctx context.Context, from, delegatee common.Address) (*types.Receipt, error) {
	return t.transact(ctx, from, "delegate", delegatee)
}

func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.callBig(ctx, "balanceOf", account)
}

// GetVotes is the account's current delegated weight.
func (t *Token) GetVotes(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.callBig(ctx, "getVotes", account)
}

func (t *Token) Delegates(ctx context.Context, account common.Address) (common.Address, error) {
	res, err := t.call(ctx, "delegates", account)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := res[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("delegates: unexpected output %T", res[0])
	}
	return addr, nil
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.callBig(ctx, "totalSupply")
}
