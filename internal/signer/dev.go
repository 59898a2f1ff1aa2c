package signer

import (
	"fmt"
	"math/big"
)

// DevPrivateKeys are the first five accounts of the development mnemonic
// "test test test test test test test test test test test junk", funded by
// default on hardhat node and anvil.
//
// These keys are publicly known. DevSigners refuses production chain IDs.
var DevPrivateKeys = []string{
	"ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", // 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266
	"59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d", // 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
	"5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a", // 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC
	"7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6", // 0x90F79bf6EB2c4f870365E785982E1f101E93b906
	"47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a", // 0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65
}

// productionChainIDs are networks where real value is at stake.
var productionChainIDs = map[int64]string{
	1:     "Ethereum Mainnet",
	10:    "Optimism",
	56:    "BNB Smart Chain",
	137:   "Polygon",
	250:   "Fantom",
	8453:  "Base",
	42161: "Arbitrum One",
	43114: "Avalanche C-Chain",
}

// DevSigners returns signers for the development keys.
func DevSigners(chainID *big.Int) ([]*Signer, error) {
	if chainID == nil {
		return nil, fmt.Errorf("%w: chain ID is required", ErrProductionChain)
	}
	if name, ok := productionChainIDs[chainID.Int64()]; ok {
		return nil, fmt.Errorf("%w: %s (chain_id=%s)", ErrProductionChain, name, chainID)
	}
	return FromHexKeys(DevPrivateKeys, chainID)
}
