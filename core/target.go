package core

import (
	"context"
	"math/big"

	"github.com/axiomesh/govsim/contracts"
	"github.com/axiomesh/govsim/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// Target is the Dao contract; only its governor may call updateValue.
type Target struct {
	boundContract
}

func NewTarget(address common.Address, l ledger.Ledger) *Target {
	return &Target{newBoundContract(address, contracts.TargetABI, l)}
}

// UpdateValueCalldata encodes updateValue(v) for use as a proposal action.
func (t *Target) UpdateValueCalldata(v *big.Int) ([]byte, error) {
	return t.calldata("updateValue", v)
}

func (t *Target) Value(ctx context.Context) (*big.Int, error) {
	return t.callBig(ctx, "daoVal")
}
