package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/axiom-kit/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultPollLimit    = 50
)

var _ Ledger = (*RPCLedger)(nil)

type Options struct {
	// GasLimit is sent with every transaction, 0 lets the node estimate.
	GasLimit     uint64
	PollInterval time.Duration
	PollLimit    uint
	Logger       logrus.FieldLogger
}

// RPCLedger talks to Ganache/Hardhat/Anvil style nodes which sign with
// unlocked accounts through eth_sendTransaction.
type RPCLedger struct {
	rpc    *rpc.Client
	client *ethclient.Client
	opts   Options
	logger logrus.FieldLogger
}

type sendTxArgs struct {
	From common.Address  `json:"from"`
	To   *common.Address `json:"to,omitempty"`
	Gas  *hexutil.Uint64 `json:"gas,omitempty"`
	Data hexutil.Bytes   `json:"data"`
}

// Dial connects to url and asks for the head block so an unreachable endpoint fails here.
func Dial(ctx context.Context, url string, opts Options) (*RPCLedger, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "dial %s: %v", url, err)
	}

	l := New(c, opts)
	if _, err := l.client.BlockNumber(ctx); err != nil {
		c.Close()
		return nil, errors.Wrapf(ErrConnection, "eth_blockNumber %s: %v", url, err)
	}

	return l, nil
}

func New(c *rpc.Client, opts Options) *RPCLedger {
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PollLimit == 0 {
		opts.PollLimit = defaultPollLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New()
	}

	return &RPCLedger{
		rpc:    c,
		client: ethclient.NewClient(c),
		opts:   opts,
		logger: logger,
	}
}

func (l *RPCLedger) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := l.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, classify(ctx, err, nil, "eth_accounts")
	}
	return accounts, nil
}

func (l *RPCLedger) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := l.client.BlockNumber(ctx)
	if err != nil {
		return 0, classify(ctx, err, nil, "eth_blockNumber")
	}
	return n, nil
}

func (l *RPCLedger) Mine(ctx context.Context, n uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := l.rpc.CallContext(ctx, nil, "evm_mine"); err != nil {
			return classify(ctx, err, nil, fmt.Sprintf("evm_mine %d/%d", i+1, n))
		}
	}
	return nil
}

func (l *RPCLedger) Deploy(ctx context.Context, from common.Address, code []byte) (common.Address, *types.Receipt, error) {
	receipt, err := l.send(ctx, sendTxArgs{From: from, Data: code})
	if err != nil {
		return common.Address{}, nil, classify(ctx, err, ErrDeploymentRejected, "deploy")
	}
	if receipt.Status != types.ReceiptStatusSuccessful || receipt.ContractAddress == (common.Address{}) {
		return common.Address{}, receipt, errors.Wrapf(ErrDeploymentRejected, "tx %s status %d", receipt.TxHash, receipt.Status)
	}
	return receipt.ContractAddress, receipt, nil
}

func (l *RPCLedger) Transact(ctx context.Context, from common.Address, to common.Address, data []byte) (*types.Receipt, error) {
	receipt, err := l.send(ctx, sendTxArgs{From: from, To: &to, Data: data})
	if err != nil {
		return nil, classify(ctx, err, ErrTransactionReverted, fmt.Sprintf("transact to %s", to))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, errors.Wrapf(ErrTransactionReverted, "tx %s to %s", receipt.TxHash, to)
	}
	return receipt, nil
}

func (l *RPCLedger) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := l.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classify(ctx, err, ErrCallFailed, fmt.Sprintf("call %s", to))
	}
	return out, nil
}

func (l *RPCLedger) Close() {
	l.rpc.Close()
}

// send submits the transaction and blocks until its receipt is available.
// A node that rejects the transaction up front (ganache reports reverts this
// way) surfaces as an error without a receipt.
func (l *RPCLedger) send(ctx context.Context, args sendTxArgs) (*types.Receipt, error) {
	if l.opts.GasLimit != 0 {
		gas := hexutil.Uint64(l.opts.GasLimit)
		args.Gas = &gas
	}

	var hash common.Hash
	if err := l.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{
		"from": args.From,
		"tx":   hash,
	}).Debug("transaction submitted")

	return l.waitReceipt(ctx, hash)
}

func (l *RPCLedger) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt

	action := func(attempt uint) error {
		r, err := l.client.TransactionReceipt(ctx, hash)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	}
	notCanceled := func(attempt uint) bool {
		return ctx.Err() == nil
	}

	err := retry.Retry(action, strategy.Limit(l.opts.PollLimit), notCanceled, strategy.Wait(l.opts.PollInterval))
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, ethereum.NotFound) {
		return nil, errors.Wrapf(ErrReceiptTimeout, "tx %s after %d polls", hash, l.opts.PollLimit)
	}
	if err != nil {
		// the transaction was accepted, so any lookup failure means we lost the node
		return nil, errors.Wrapf(ErrConnection, "wait receipt %s: %v", hash, err)
	}

	l.logger.WithFields(logrus.Fields{
		"tx":     hash,
		"block":  receipt.BlockNumber,
		"status": receipt.Status,
		"gas":    receipt.GasUsed,
	}).Debug("transaction confirmed")

	return receipt, nil
}

// classify tells JSON-RPC error replies, which the node sent on purpose,
// apart from transport failures. A reply wraps onReply, or only msg when
// onReply is nil; anything else is ErrConnection.
func classify(ctx context.Context, err error, onReply error, msg string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrReceiptTimeout) {
		return err
	}

	var reply rpc.Error
	if errors.As(err, &reply) {
		if onReply == nil {
			return errors.Wrap(err, msg)
		}
		return errors.Wrapf(onReply, "%s: %v", msg, err)
	}
	return errors.Wrapf(ErrConnection, "%s: %v", msg, err)
}
