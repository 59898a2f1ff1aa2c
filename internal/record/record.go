// Package record persists deployment results so later commands can find the
// contract a network was deployed to.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a network has no recorded deployment.
var ErrNotFound = errors.New("record: no deployment recorded")

// Deployment is one recorded deployment of a contract.
type Deployment struct {
	RunID        string         `json:"runId"`
	Network      string         `json:"network"`
	ChainID      uint64         `json:"chainId"`
	ContractName string         `json:"contractName"`
	Address      common.Address `json:"address"`
	TxHash       common.Hash    `json:"transactionHash"`
	BlockNumber  uint64         `json:"blockNumber"`
	Deployer     common.Address `json:"deployer"`
	Args         []string       `json:"args"`
	MintPrice    string         `json:"mintPrice"`
	MintTxs      []common.Hash  `json:"mintTransactions,omitempty"`
	DeployedAt   time.Time      `json:"deployedAt"`
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// Store reads and writes deployment records under a directory, one file per
// network and contract: <dir>/<network>/<contract>.json.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns where the record for network and contract lives.
func (s *Store) Path(network, contract string) string {
	return filepath.Join(s.dir, network, contract+".json")
}

// Save writes d, replacing any earlier record for the same network and
// contract. A missing RunID is filled in.
func (s *Store) Save(d *Deployment) error {
	if d.Network == "" || d.ContractName == "" {
		return fmt.Errorf("record: network and contract name are required")
	}
	if d.RunID == "" {
		d.RunID = NewRunID()
	}

	path := s.Path(d.Network, d.ContractName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}
	return writeJSON(path, d, 0o644)
}

// Load reads the record for network and contract.
func (s *Store) Load(network, contract string) (*Deployment, error) {
	path := s.Path(network, contract)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, contract, network)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", path, err)
	}
	return &d, nil
}

// AppendMints adds mint transaction hashes to an existing record.
func (s *Store) AppendMints(network, contract string, hashes ...common.Hash) error {
	d, err := s.Load(network, contract)
	if err != nil {
		return err
	}
	d.MintTxs = append(d.MintTxs, hashes...)
	return s.Save(d)
}

// writeJSON writes JSON via a temp file then rename.
func writeJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, mode); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
