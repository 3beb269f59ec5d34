package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/0glabs/curvedeploy/lib/account"
	"github.com/0glabs/curvedeploy/lib/artifact"
)

var (
	ErrChainIDMismatch = errors.New("configured chain id does not match node")
	ErrReverted        = errors.New("deployment transaction reverted")
)

// Backend is the node connection a Deployer needs. *ethclient.Client and the
// simulated backend client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

type Options struct {
	// ChainID must match the node when set. Zero asks the node.
	ChainID *big.Int
	// GasLimit fixes the creation gas. Zero estimates it.
	GasLimit uint64
	// GasPriceBump is added to the suggested gas price on chains without
	// a base fee.
	GasPriceBump *big.Int
}

// Deployer submits contract creation transactions signed by one account.
type Deployer struct {
	backend Backend
	from    *account.Account
	opts    Options
	logger  *slog.Logger

	chainID *big.Int
}

// Pending is a submitted but unconfirmed deployment.
type Pending struct {
	Contract string
	Address  common.Address
	Tx       *types.Transaction
}

// Deployment is a confirmed contract instance.
type Deployment struct {
	Contract    string
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	ChainID     *big.Int
	From        common.Address
}

func New(backend Backend, from *account.Account, opts Options, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		backend: backend,
		from:    from,
		opts:    opts,
		logger:  logger,
	}
}

func (d *Deployer) From() common.Address {
	return d.from.Address
}

// ChainID resolves and caches the chain id, checking it against the
// configured value.
func (d *Deployer) ChainID(ctx context.Context) (*big.Int, error) {
	if d.chainID != nil {
		return d.chainID, nil
	}

	nodeChainID, err := d.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}
	if d.opts.ChainID != nil && d.opts.ChainID.Sign() > 0 && d.opts.ChainID.Cmp(nodeChainID) != 0 {
		return nil, fmt.Errorf("%w: configured %s, node %s", ErrChainIDMismatch, d.opts.ChainID, nodeChainID)
	}
	d.chainID = nodeChainID
	return d.chainID, nil
}

// Deploy signs and broadcasts the creation transaction for f with the given
// constructor arguments, in order.
func (d *Deployer) Deploy(ctx context.Context, f *artifact.Factory, args ...interface{}) (*Pending, error) {
	auth, err := d.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	address, tx, _, err := bind.DeployContract(auth, f.ABI, f.Bytecode, d.backend, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy %s: %w", f.Name, err)
	}

	d.logger.Info("deployment submitted",
		"contract", f.Name,
		"tx", tx.Hash().Hex(),
		"address", address.Hex(),
		"nonce", tx.Nonce(),
		"gas", tx.Gas(),
	)
	return &Pending{Contract: f.Name, Address: address, Tx: tx}, nil
}

// WaitDeployed blocks until the creation transaction is mined and code is
// present at the new address, or ctx ends.
func (d *Deployer) WaitDeployed(ctx context.Context, p *Pending) (*Deployment, error) {
	receipt, err := bind.WaitMined(ctx, d.backend, p.Tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for %s: %w", p.Tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrReverted, receipt.TxHash.Hex())
	}

	address, err := bind.WaitDeployed(ctx, d.backend, p.Tx)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm %s deployment: %w", p.Contract, err)
	}

	chainID, err := d.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}

	d.logger.Info("deployment confirmed",
		"contract", p.Contract,
		"address", address.Hex(),
		"block", block,
		"gas_used", receipt.GasUsed,
	)
	return &Deployment{
		Contract:    p.Contract,
		Address:     address,
		TxHash:      receipt.TxHash,
		BlockNumber: block,
		GasUsed:     receipt.GasUsed,
		ChainID:     new(big.Int).Set(chainID),
		From:        d.from.Address,
	}, nil
}

// CallView runs a read-only method against a deployed contract.
func (d *Deployer) CallView(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		From: d.from.Address,
		To:   &contract,
		Data: data,
	}
	result, err := d.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	return contractABI.Unpack(method, result)
}

func (d *Deployer) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	chainID, err := d.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(d.from.PrivateKey, chainID)
	if err != nil {
		return nil, err
	}
	auth.Context = ctx

	nonce, err := d.backend.PendingNonceAt(ctx, d.from.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	auth.Value = big.NewInt(0) // in wei
	auth.GasLimit = d.opts.GasLimit

	eip1559, err := d.supportsDynamicFees(ctx)
	if err != nil {
		return nil, err
	}
	// bind picks dynamic fees itself when GasPrice is left nil
	if !eip1559 {
		gasPrice, err := d.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		if d.opts.GasPriceBump != nil {
			gasPrice.Add(gasPrice, d.opts.GasPriceBump)
		}
		auth.GasPrice = gasPrice
	}

	d.logger.Debug("prepared transactor",
		"from", d.from.Address.Hex(),
		"chain_id", chainID,
		"nonce", nonce,
		"eip1559", eip1559,
	)
	return auth, nil
}

func (d *Deployer) supportsDynamicFees(ctx context.Context) (bool, error) {
	head, err := d.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch latest header: %w", err)
	}
	return head.BaseFee != nil, nil
}
