package core

import (
	"context"
	"fmt"
	"math/big"

	"github.com/axiomesh/govsim/ledger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// boundContract packs calls against an ABI and sends them through the ledger.
type boundContract struct {
	Address common.Address

	abi    abi.ABI
	ledger ledger.Ledger
}

func newBoundContract(address common.Address, contractABI abi.ABI, l ledger.Ledger) boundContract {
	return boundContract{
		Address: address,
		abi:     contractABI,
		ledger:  l,
	}
}

func (c *boundContract) calldata(method string, args ...any) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func (c *boundContract) transact(ctx context.Context, from common.Address, method string, args ...any) (*types.Receipt, error) {
	data, err := c.calldata(method, args...)
	if err != nil {
		return nil, err
	}
	receipt, err := c.ledger.Transact(ctx, from, c.Address, data)
	if err != nil {
		return receipt, fmt.Errorf("%s: %w", method, err)
	}
	return receipt, nil
}

func (c *boundContract) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.calldata(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := c.ledger.Call(ctx, c.Address, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	res, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return res, nil
}

func (c *boundContract) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	res, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output %T", method, res[0])
	}
	return v, nil
}

// unpackEvent finds the first log emitted by this contract whose topic matches
// the named event and decodes it into out. Logs are matched by signature, never
// by position, since other contracts and events may be interleaved.
func (c *boundContract) unpackEvent(receipt *types.Receipt, name string, out any) (*types.Log, error) {
	ev, ok := c.abi.Events[name]
	if !ok {
		return nil, fmt.Errorf("abi has no event %s", name)
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	for _, lg := range receipt.Logs {
		if lg.Address != c.Address || len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}
		if len(lg.Data) > 0 {
			if err := c.abi.UnpackIntoInterface(out, name, lg.Data); err != nil {
				return nil, fmt.Errorf("unpack %s: %w", name, err)
			}
		}
		if err := abi.ParseTopics(out, indexed, lg.Topics[1:]); err != nil {
			return nil, fmt.Errorf("parse %s topics: %w", name, err)
		}
		return lg, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrEventNotFound, name)
}
