// Package signer provides the accounts that deploy and mint.
package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Bidon15/chainbeats/internal/config"
)

var (
	// ErrNoAccounts is returned when a network has no usable signer.
	ErrNoAccounts = errors.New("signer: no accounts configured")
	// ErrProductionChain is returned when development keys are requested
	// for a public network.
	ErrProductionChain = errors.New("signer: development keys refused on production chain")
)

// Signer is an account that can authorize transactions.
type Signer struct {
	address common.Address
	opts    *bind.TransactOpts
}

// New wraps a transactor.
func New(opts *bind.TransactOpts) *Signer {
	return &Signer{address: opts.From, opts: opts}
}

// FromKey creates a signer from a private key.
func FromKey(key *ecdsa.PrivateKey, chainID *big.Int) (*Signer, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	return New(opts), nil
}

// FromHex creates a signer from a hex-encoded private key, with or without
// a 0x prefix.
func FromHex(hexKey string, chainID *big.Int) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return FromKey(key, chainID)
}

// Address returns the signer's address.
func (s *Signer) Address() common.Address {
	return s.address
}

// Transactor returns fresh transaction options bound to ctx that send value
// with the transaction. A nil value sends nothing.
func (s *Signer) Transactor(ctx context.Context, value *big.Int) *bind.TransactOpts {
	opts := *s.opts
	opts.Context = ctx
	opts.Value = value
	return &opts
}

// FromHexKeys creates one signer per key, in order.
func FromHexKeys(keys []string, chainID *big.Int) ([]*Signer, error) {
	signers := make([]*Signer, 0, len(keys))
	for i, k := range keys {
		s, err := FromHex(k, chainID)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		signers = append(signers, s)
	}
	return signers, nil
}

// FromKeystore unlocks every account in an encrypted keystore directory.
// Accounts are returned in the keystore's order (sorted by file URL).
func FromKeystore(dir, password string, chainID *big.Int) ([]*Signer, error) {
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	accounts := ks.Accounts()
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: keystore %s is empty", ErrNoAccounts, dir)
	}

	signers := make([]*Signer, 0, len(accounts))
	for _, acc := range accounts {
		if err := ks.Unlock(acc, password); err != nil {
			return nil, fmt.Errorf("unlock %s: %w", acc.Address.Hex(), err)
		}
		opts, err := bind.NewKeyStoreTransactorWithChainID(ks, acc, chainID)
		if err != nil {
			return nil, fmt.Errorf("create transactor for %s: %w", acc.Address.Hex(), err)
		}
		signers = append(signers, New(opts))
	}
	return signers, nil
}

// Load resolves the signers configured for a network, in this order:
// explicit accounts, keystore, development keys.
func Load(net config.Network, chainID *big.Int) ([]*Signer, error) {
	switch {
	case len(net.Accounts) > 0:
		return FromHexKeys(net.Accounts, chainID)
	case net.Keystore != "":
		password := ""
		if net.PasswordEnv != "" {
			password = os.Getenv(net.PasswordEnv)
		}
		return FromKeystore(net.Keystore, password, chainID)
	case net.DevAccounts:
		return DevSigners(chainID)
	default:
		return nil, ErrNoAccounts
	}
}

// First returns the first configured signer, the one used as deployer and
// mint recipient.
func First(net config.Network, chainID *big.Int) (*Signer, error) {
	signers, err := Load(net, chainID)
	if err != nil {
		return nil, err
	}
	if len(signers) == 0 {
		return nil, ErrNoAccounts
	}
	return signers[0], nil
}
