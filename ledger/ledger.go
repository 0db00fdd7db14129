// Package ledger is the node boundary of the simulator: node-managed accounts,
// block height, test-only mining, transactions and read-only calls.
package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrConnection          = errors.New("ledger connection failed")
	ErrDeploymentRejected  = errors.New("deployment rejected")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrCallFailed          = errors.New("contract call failed")
	ErrReceiptTimeout      = errors.New("transaction not mined in time")
)

// Ledger is the capability set the orchestrator needs from a JSON-RPC node.
// Transactions are confirmed before returning.
type Ledger interface {
	Accounts(ctx context.Context) ([]common.Address, error)

	BlockNumber(ctx context.Context) (uint64, error)

	// Mine advances the chain by n empty blocks. Test nodes only.
	Mine(ctx context.Context, n uint64) error

	Deploy(ctx context.Context, from common.Address, code []byte) (common.Address, *types.Receipt, error)

	Transact(ctx context.Context, from common.Address, to common.Address, data []byte) (*types.Receipt, error)

	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	Close()
}
