package chainbeats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Method names
const (
	MethodMint        = "mint"
	MethodMintPrice   = "mintPrice"
	MethodGetMetadata = "getMetadata"
)

// InterfaceABI is the part of the ChainBeats ABI the harness uses. It is
// enough to talk to a deployed instance without the compiled artifact.
const InterfaceABI = `[
	{
		"type": "constructor",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "_endpoint", "type": "address", "internalType": "address"},
			{"name": "_startTokenId", "type": "uint256", "internalType": "uint256"},
			{"name": "_endTokenId", "type": "uint256", "internalType": "uint256"},
			{"name": "_mintPrice", "type": "uint256", "internalType": "uint256"}
		]
	},
	{
		"type": "function",
		"name": "mint",
		"stateMutability": "payable",
		"inputs": [{"name": "to", "type": "address", "internalType": "address"}],
		"outputs": []
	},
	{
		"type": "function",
		"name": "mintPrice",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256", "internalType": "uint256"}]
	},
	{
		"type": "function",
		"name": "getMetadata",
		"stateMutability": "view",
		"inputs": [{"name": "tokenId", "type": "uint256", "internalType": "uint256"}],
		"outputs": [{"name": "", "type": "bytes", "internalType": "bytes"}]
	}
]`

var (
	// ErrTransactionReverted is returned when a mined transaction failed.
	ErrTransactionReverted = errors.New("chainbeats: transaction reverted")
	// ErrInvalidMetadata is returned when metadata is not valid UTF-8 text.
	ErrInvalidMetadata = errors.New("chainbeats: metadata is not valid UTF-8")
)

// Backend is the chain access the harness needs: contract calls and
// transactions, receipts, and account/chain queries for pre-flight checks.
// *ethclient.Client and the simulated backend's client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ParseInterfaceABI parses InterfaceABI.
func ParseInterfaceABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(InterfaceABI))
}

// ChainBeats is a handle to a deployed contract.
type ChainBeats struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewChainBeats binds a deployed contract using InterfaceABI.
func NewChainBeats(address common.Address, backend bind.ContractBackend) (*ChainBeats, error) {
	parsed, err := ParseInterfaceABI()
	if err != nil {
		return nil, fmt.Errorf("parse interface ABI: %w", err)
	}
	return bindContract(address, parsed, backend), nil
}

func bindContract(address common.Address, parsed abi.ABI, backend bind.ContractBackend) *ChainBeats {
	return &ChainBeats{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
}

// Deploy sends the creation transaction for artifact with the given
// constructor arguments. The returned handle is usable once the transaction
// is mined; see WaitDeployed.
func Deploy(
	auth *bind.TransactOpts,
	backend bind.ContractBackend,
	artifact *Artifact,
	endpoint common.Address,
	startTokenID, endTokenID, mintPrice *big.Int,
) (*ChainBeats, *types.Transaction, error) {
	parsed, err := artifact.ParsedABI()
	if err != nil {
		return nil, nil, err
	}
	if err := CheckABI(parsed); err != nil {
		return nil, nil, err
	}
	code, err := artifact.CreationCode()
	if err != nil {
		return nil, nil, err
	}

	address, tx, contract, err := bind.DeployContract(auth, parsed, code, backend,
		endpoint, startTokenID, endTokenID, mintPrice)
	if err != nil {
		return nil, nil, fmt.Errorf("deploy %s: %w", ContractName, err)
	}

	return &ChainBeats{address: address, abi: parsed, contract: contract}, tx, nil
}

// Address returns the contract address.
func (c *ChainBeats) Address() common.Address {
	return c.address
}

// MintPrice reads mintPrice().
func (c *ChainBeats) MintPrice(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, MethodMintPrice); err != nil {
		return nil, fmt.Errorf("call %s: %w", MethodMintPrice, err)
	}
	price := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return price, nil
}

// GetMetadata reads getMetadata(tokenId).
func (c *ChainBeats) GetMetadata(opts *bind.CallOpts, tokenID *big.Int) ([]byte, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, MethodGetMetadata, tokenID); err != nil {
		return nil, fmt.Errorf("call %s(%s): %w", MethodGetMetadata, tokenID, err)
	}
	blob := *abi.ConvertType(out[0], new([]byte)).(*[]byte)
	return blob, nil
}

// MetadataText reads getMetadata(tokenId) and decodes it as UTF-8 text.
func (c *ChainBeats) MetadataText(opts *bind.CallOpts, tokenID *big.Int) (string, error) {
	blob, err := c.GetMetadata(opts, tokenID)
	if err != nil {
		return "", err
	}
	return DecodeMetadata(blob)
}

// Mint sends mint(to). The payment is taken from opts.Value.
func (c *ChainBeats) Mint(opts *bind.TransactOpts, to common.Address) (*types.Transaction, error) {
	tx, err := c.contract.Transact(opts, MethodMint, to)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", MethodMint, err)
	}
	return tx, nil
}

// UnpackMint decodes the recipient from mint calldata.
func (c *ChainBeats) UnpackMint(data []byte) (common.Address, error) {
	method, ok := c.abi.Methods[MethodMint]
	if !ok || len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return common.Address{}, fmt.Errorf("not a %s call", MethodMint)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", MethodMint, err)
	}
	return *abi.ConvertType(args[0], new(common.Address)).(*common.Address), nil
}

// DecodeMetadata converts a metadata blob to text.
func DecodeMetadata(blob []byte) (string, error) {
	if !utf8.Valid(blob) {
		return "", ErrInvalidMetadata
	}
	return string(blob), nil
}

// WaitMined blocks until tx is mined and fails if it reverted.
func WaitMined(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s in block %d", ErrTransactionReverted, tx.Hash().Hex(), receipt.BlockNumber.Uint64())
	}
	return receipt, nil
}

// WaitDeployed blocks until the creation transaction is mined and code is
// present at the contract address.
func WaitDeployed(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := WaitMined(ctx, backend, tx)
	if err != nil {
		return receipt, err
	}
	if _, err := bind.WaitDeployed(ctx, backend, tx); err != nil {
		return receipt, fmt.Errorf("confirm deployment %s: %w", tx.Hash().Hex(), err)
	}
	return receipt, nil
}
