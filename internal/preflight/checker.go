// Package preflight provides pre-deployment validation checks.
package preflight

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DefaultTimeout is the default timeout for RPC calls.
const DefaultTimeout = 10 * time.Second

// DefaultGasReserve is the balance kept aside for gas on top of mint payments
// (0.01 ETH).
var DefaultGasReserve = big.NewInt(1e16)

// CheckName identifies a specific pre-flight check.
type CheckName string

const (
	// CheckRPCReachable verifies the RPC endpoint is reachable.
	CheckRPCReachable CheckName = "rpc_reachable"
	// CheckChainIDMatch verifies the chain ID matches the expected value.
	CheckChainIDMatch CheckName = "chain_id_match"
	// CheckDeployerBalance verifies the deployer can pay for the mints and gas.
	CheckDeployerBalance CheckName = "deployer_balance"
)

// Client is the chain access the checks need.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// CheckResult represents the result of a single pre-flight check.
type CheckResult struct {
	Name    CheckName              `json:"name"`
	Passed  bool                   `json:"passed"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Request contains the parameters for pre-flight checks.
type Request struct {
	RPCURL          string   `json:"rpc_url"`
	ChainID         uint64   `json:"chain_id"`
	DeployerAddress string   `json:"deployer_address"`
	MintPrice       *big.Int `json:"mint_price"`
	MintCount       int      `json:"mint_count"`
	// GasReserve overrides DefaultGasReserve when set.
	GasReserve *big.Int `json:"gas_reserve,omitempty"`
}

// Response contains the results of all pre-flight checks.
type Response struct {
	OK                 bool          `json:"ok"`
	Checks             []CheckResult `json:"checks"`
	DeployerAddress    string        `json:"deployer_address"`
	RequiredFundingETH string        `json:"required_funding_eth"`
	CurrentBalanceETH  string        `json:"current_balance_eth,omitempty"`
}

// Failed returns the checks that did not pass.
func (r *Response) Failed() []CheckResult {
	var failed []CheckResult
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Checker performs pre-flight validation checks.
type Checker struct {
	timeout time.Duration
}

// NewChecker creates a new pre-flight checker.
func NewChecker() *Checker {
	return &Checker{
		timeout: DefaultTimeout,
	}
}

// WithTimeout sets a custom timeout for RPC calls.
func (c *Checker) WithTimeout(timeout time.Duration) *Checker {
	c.timeout = timeout
	return c
}

// RunChecks dials req.RPCURL and performs all pre-flight checks.
func (c *Checker) RunChecks(ctx context.Context, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	rpcCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := ethclient.DialContext(rpcCtx, req.RPCURL)
	if err != nil {
		resp := c.newResponse(req)
		resp.OK = false
		resp.Checks = append(resp.Checks, CheckResult{
			Name:    CheckRPCReachable,
			Message: fmt.Sprintf("Failed to connect to RPC: %v", err),
			Details: map[string]interface{}{"error": err.Error()},
		})
		return resp, nil
	}
	defer client.Close()

	return c.run(rpcCtx, client, req), nil
}

// RunChecksWithClient performs all pre-flight checks over an existing client.
// req.RPCURL is not used.
func (c *Checker) RunChecksWithClient(ctx context.Context, client Client, req *Request) (*Response, error) {
	if err := c.validateAccount(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	rpcCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.run(rpcCtx, client, req), nil
}

func (c *Checker) newResponse(req *Request) *Response {
	return &Response{
		OK:                 true,
		Checks:             make([]CheckResult, 0, 3),
		DeployerAddress:    req.DeployerAddress,
		RequiredFundingETH: weiToETHString(c.getRequiredFunding(req)),
	}
}

func (c *Checker) run(ctx context.Context, client Client, req *Request) *Response {
	response := c.newResponse(req)
	requiredWei := c.getRequiredFunding(req)

	// Check 1: RPC reachable
	reachableResult := c.checkRPCReachable(ctx, client)
	response.Checks = append(response.Checks, reachableResult)
	if !reachableResult.Passed {
		response.OK = false
		return response // Can't continue without connection
	}

	// Check 2: Chain ID Match
	chainIDResult := c.checkChainIDMatch(ctx, client, req.ChainID)
	response.Checks = append(response.Checks, chainIDResult)
	if !chainIDResult.Passed {
		response.OK = false
	}

	// Check 3: Deployer Balance
	balanceResult := c.checkDeployerBalance(ctx, client, req.DeployerAddress, requiredWei)
	response.Checks = append(response.Checks, balanceResult)
	if !balanceResult.Passed {
		response.OK = false
	}

	if details := balanceResult.Details; details != nil {
		if haveETH, ok := details["have_eth"].(string); ok {
			response.CurrentBalanceETH = haveETH
		}
	}

	return response
}

// validateRequest validates the pre-flight request parameters.
func (c *Checker) validateRequest(req *Request) error {
	if req.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}
	return c.validateAccount(req)
}

func (c *Checker) validateAccount(req *Request) error {
	if req.ChainID == 0 {
		return fmt.Errorf("chain_id is required")
	}
	if req.DeployerAddress == "" {
		return fmt.Errorf("deployer_address is required")
	}
	if !common.IsHexAddress(req.DeployerAddress) {
		return fmt.Errorf("deployer_address is not a valid Ethereum address")
	}
	if req.MintCount < 0 {
		return fmt.Errorf("mint_count must not be negative")
	}
	if req.MintPrice != nil && req.MintPrice.Sign() < 0 {
		return fmt.Errorf("mint_price must not be negative")
	}
	return nil
}

// checkRPCReachable verifies the endpoint answers a simple call.
func (c *Checker) checkRPCReachable(ctx context.Context, client Client) CheckResult {
	result := CheckResult{
		Name: CheckRPCReachable,
	}

	if _, err := client.ChainID(ctx); err != nil {
		result.Passed = false
		result.Message = fmt.Sprintf("RPC connection failed: %v", err)
		result.Details = map[string]interface{}{
			"error": err.Error(),
		}
		return result
	}

	result.Passed = true
	result.Message = "Connected to RPC successfully"
	return result
}

// checkChainIDMatch verifies the chain ID matches the expected value.
func (c *Checker) checkChainIDMatch(ctx context.Context, client Client, expectedChainID uint64) CheckResult {
	result := CheckResult{
		Name: CheckChainIDMatch,
	}

	actualChainID, err := client.ChainID(ctx)
	if err != nil {
		result.Passed = false
		result.Message = fmt.Sprintf("Failed to get chain ID: %v", err)
		result.Details = map[string]interface{}{
			"error": err.Error(),
		}
		return result
	}

	expected := new(big.Int).SetUint64(expectedChainID)
	if actualChainID.Cmp(expected) != 0 {
		result.Passed = false
		result.Message = fmt.Sprintf("Chain ID mismatch: expected %d, got %d", expectedChainID, actualChainID.Uint64())
		result.Details = map[string]interface{}{
			"expected": expectedChainID,
			"actual":   actualChainID.Uint64(),
		}
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("Chain ID %d (%s) confirmed", expectedChainID, GetNetworkName(expectedChainID))
	result.Details = map[string]interface{}{
		"chain_id": expectedChainID,
	}
	return result
}

// checkDeployerBalance verifies the deployer has sufficient funds.
func (c *Checker) checkDeployerBalance(ctx context.Context, client Client, deployerAddr string, requiredWei *big.Int) CheckResult {
	result := CheckResult{
		Name: CheckDeployerBalance,
	}

	addr := common.HexToAddress(deployerAddr)
	balance, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		result.Passed = false
		result.Message = fmt.Sprintf("Failed to get deployer balance: %v", err)
		result.Details = map[string]interface{}{
			"error": err.Error(),
		}
		return result
	}

	haveETH := weiToETHString(balance)
	needETH := weiToETHString(requiredWei)

	result.Details = map[string]interface{}{
		"have_wei": balance.String(),
		"need_wei": requiredWei.String(),
		"have_eth": haveETH,
		"need_eth": needETH,
	}

	if balance.Cmp(requiredWei) < 0 {
		result.Passed = false
		result.Message = fmt.Sprintf("Insufficient deployer balance: have %s ETH, need %s ETH", haveETH, needETH)
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("Deployer has sufficient balance: %s ETH", haveETH)
	return result
}

// getRequiredFunding returns mintPrice * mintCount plus the gas reserve.
func (c *Checker) getRequiredFunding(req *Request) *big.Int {
	reserve := DefaultGasReserve
	if req.GasReserve != nil {
		reserve = req.GasReserve
	}
	required := new(big.Int).Set(reserve)
	if req.MintPrice != nil && req.MintCount > 0 {
		mints := new(big.Int).Mul(req.MintPrice, big.NewInt(int64(req.MintCount)))
		required.Add(required, mints)
	}
	return required
}

// weiToETHString converts wei to a human-readable ETH string.
func weiToETHString(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	weiFloat := new(big.Float).SetInt(wei)
	ethFloat := new(big.Float).Quo(weiFloat, big.NewFloat(1e18))

	// Format with up to 4 decimal places
	return ethFloat.Text('f', 4)
}

// GetNetworkName returns a human-readable name for a chain ID.
func GetNetworkName(chainID uint64) string {
	switch chainID {
	case 1:
		return "Ethereum Mainnet"
	case 11155111:
		return "Sepolia"
	case 17000:
		return "Holesky"
	case 31337:
		return "Hardhat/Anvil"
	case 1337:
		return "Local dev chain"
	default:
		return fmt.Sprintf("Chain %d", chainID)
	}
}
