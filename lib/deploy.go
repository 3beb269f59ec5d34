package lib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/0glabs/curvedeploy/lib/artifact"
	"github.com/0glabs/curvedeploy/lib/deployer"
	"github.com/0glabs/curvedeploy/lib/record"
	"github.com/0glabs/curvedeploy/lib/units"
)

// SaleContract is the artifact name of the bonding curve token sale.
const SaleContract = "Project"

// Deployment stages reported by DeploymentError.
const (
	StageParams  = "params"
	StageFactory = "factory"
	StageDeploy  = "deploy"
	StageConfirm = "confirm"
	StageVerify  = "verify"
	StageRecord  = "record"
)

var ErrVerifyMismatch = errors.New("on-chain value does not match constructor argument")

// DeploymentError wraps any failure of a deployment run. Nothing is retried.
type DeploymentError struct {
	Stage string
	Err   error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

func stageErr(stage string, err error) error {
	return &DeploymentError{Stage: stage, Err: err}
}

// FactoryRegistry resolves a deployable contract type by name.
type FactoryRegistry interface {
	Factory(name string) (*artifact.Factory, error)
}

// ContractDeployer broadcasts creation transactions and waits for them.
type ContractDeployer interface {
	Deploy(ctx context.Context, f *artifact.Factory, args ...interface{}) (*deployer.Pending, error)
	WaitDeployed(ctx context.Context, p *deployer.Pending) (*deployer.Deployment, error)
}

// ViewCaller is implemented by deployers that can read back state.
type ViewCaller interface {
	CallView(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error)
}

// SaleParams are the human-readable constructor inputs.
type SaleParams struct {
	Contract  string
	BasePrice string
	Slope     string
	// Verify reads each constructor argument back through a same-named
	// view method when the ABI has one.
	Verify bool
}

// Sale wires a deployment run together.
type Sale struct {
	Registry FactoryRegistry
	Deployer ContractDeployer
	// Store is optional; nil skips writing a record.
	Store  *record.Store
	Out    io.Writer
	Logger *slog.Logger
}

// DeploySale deploys the bonding curve sale with exactly [basePrice, slope]
// as constructor arguments and prints its address to s.Out.
func (s *Sale) DeploySale(ctx context.Context, p SaleParams) (*deployer.Deployment, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	basePrice, err := units.ParseEther(p.BasePrice)
	if err != nil {
		return nil, stageErr(StageParams, fmt.Errorf("base price: %w", err))
	}
	slope, err := units.ParseEther(p.Slope)
	if err != nil {
		return nil, stageErr(StageParams, fmt.Errorf("slope: %w", err))
	}

	name := p.Contract
	if name == "" {
		name = SaleContract
	}
	factory, err := s.Registry.Factory(name)
	if err != nil {
		return nil, stageErr(StageFactory, err)
	}

	logger.Info("deploying sale",
		"contract", factory.Name,
		"base_price", units.FormatEther(basePrice),
		"slope", units.FormatEther(slope),
	)

	pending, err := s.Deployer.Deploy(ctx, factory, basePrice, slope)
	if err != nil {
		return nil, stageErr(StageDeploy, err)
	}

	deployed, err := s.Deployer.WaitDeployed(ctx, pending)
	if err != nil {
		return nil, stageErr(StageConfirm, err)
	}

	if p.Verify {
		if err := s.verify(ctx, factory, deployed, []*big.Int{basePrice, slope}); err != nil {
			return nil, stageErr(StageVerify, err)
		}
	}

	// stdout only ever carries the address of a fully successful run
	if s.Store != nil {
		path, err := s.Store.Persist(newRecord(factory, deployed, []*big.Int{basePrice, slope}))
		if err != nil {
			logger.Error("deployment not recorded", "address", deployed.Address.Hex(), "tx", deployed.TxHash.Hex())
			return deployed, stageErr(StageRecord, err)
		}
		logger.Info("deployment recorded", "path", path)
	}

	fmt.Fprintln(s.Out, "Dynamic Bonding Curve Token Sale contract deployed to:", deployed.Address.Hex())
	return deployed, nil
}

// verify compares each constructor argument with the zero-argument view
// method of the same name, when the ABI declares one.
func (s *Sale) verify(ctx context.Context, f *artifact.Factory, d *deployer.Deployment, args []*big.Int) error {
	caller, ok := s.Deployer.(ViewCaller)
	if !ok {
		return errors.New("deployer cannot call view methods")
	}

	for i, input := range f.ABI.Constructor.Inputs {
		if i >= len(args) {
			break
		}
		method, ok := f.ABI.Methods[input.Name]
		if !ok || len(method.Inputs) != 0 || len(method.Outputs) != 1 || !method.IsConstant() {
			continue
		}
		out, err := caller.CallView(ctx, d.Address, f.ABI, method.Name)
		if err != nil {
			return err
		}
		got, ok := out[0].(*big.Int)
		if !ok {
			continue
		}
		if got.Cmp(args[i]) != 0 {
			return fmt.Errorf("%w: %s() = %s, want %s", ErrVerifyMismatch, method.Name, got, args[i])
		}
	}
	return nil
}

func newRecord(f *artifact.Factory, d *deployer.Deployment, args []*big.Int) *record.Record {
	ctorArgs := make(map[string]string, len(args))
	for i, arg := range args {
		key := fmt.Sprintf("arg%d", i)
		if i < len(f.ABI.Constructor.Inputs) && f.ABI.Constructor.Inputs[i].Name != "" {
			key = f.ABI.Constructor.Inputs[i].Name
		}
		ctorArgs[key] = arg.String()
	}

	chainID := ""
	if d.ChainID != nil {
		chainID = d.ChainID.String()
	}
	return &record.Record{
		Contract:        d.Contract,
		Address:         d.Address,
		TxHash:          d.TxHash,
		BlockNumber:     d.BlockNumber,
		ChainID:         chainID,
		Deployer:        d.From,
		ConstructorArgs: ctorArgs,
	}
}
