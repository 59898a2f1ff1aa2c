// Package omnichain loads the network-keyed ChainBeats deployment settings
// and turns them into constructor arguments.
package omnichain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the settings file is looked up when no path is given.
const DefaultPath = "omnichain.json"

var (
	// ErrNetworkNotFound is returned when the file has no entry for a network.
	ErrNetworkNotFound = errors.New("omnichain: network not configured")
	// ErrInvalidRecord is returned when a network entry fails validation.
	ErrInvalidRecord = errors.New("omnichain: invalid record")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Record holds the constructor settings for one network.
type Record struct {
	Endpoint     string `json:"endpoint" yaml:"endpoint" validate:"required,eth_addr"`
	StartTokenID uint64 `json:"startTokenId" yaml:"startTokenId"`
	EndTokenID   uint64 `json:"endTokenId" yaml:"endTokenId" validate:"gtefield=StartTokenID"`
	// MintPrice is a base-10 integer in wei.
	MintPrice string `json:"mintPrice" yaml:"mintPrice" validate:"required,number"`
}

// Validate checks the record before it is used to build arguments.
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// Values returns the raw settings in constructor order:
// endpoint, startTokenId, endTokenId, mintPrice.
func (r Record) Values() []interface{} {
	return []interface{}{r.Endpoint, r.StartTokenID, r.EndTokenID, r.MintPrice}
}

// Arguments converts the record into typed constructor arguments.
func (r Record) Arguments() (Arguments, error) {
	if err := r.Validate(); err != nil {
		return Arguments{}, err
	}
	price, ok := new(big.Int).SetString(r.MintPrice, 10)
	if !ok {
		return Arguments{}, fmt.Errorf("%w: mintPrice %q is not a base-10 integer", ErrInvalidRecord, r.MintPrice)
	}
	return Arguments{
		Endpoint:     common.HexToAddress(r.Endpoint),
		StartTokenID: new(big.Int).SetUint64(r.StartTokenID),
		EndTokenID:   new(big.Int).SetUint64(r.EndTokenID),
		MintPrice:    price,
	}, nil
}

// Arguments are the ChainBeats constructor parameters.
type Arguments struct {
	Endpoint     common.Address `json:"endpoint"`
	StartTokenID *big.Int       `json:"startTokenId"`
	EndTokenID   *big.Int       `json:"endTokenId"`
	MintPrice    *big.Int       `json:"mintPrice"`
}

// Slice returns the arguments in the order the constructor takes them.
func (a Arguments) Slice() []interface{} {
	return []interface{}{a.Endpoint, a.StartTokenID, a.EndTokenID, a.MintPrice}
}

// File maps network names to their records.
type File struct {
	Path    string
	Records map[string]Record
}

// Load reads a settings file. Files ending in .yaml or .yml are parsed as
// YAML, everything else as JSON.
func Load(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read omnichain file: %w", err)
	}

	records := make(map[string]Record)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	return &File{Path: path, Records: records}, nil
}

// Lookup returns the record for a network. An exact key match wins over a
// case-insensitive one.
func (f *File) Lookup(network string) (Record, error) {
	if f == nil {
		return Record{}, fmt.Errorf("%w: %s", ErrNetworkNotFound, network)
	}
	if rec, ok := f.Records[network]; ok {
		return rec, nil
	}
	for _, name := range f.Networks() {
		if strings.EqualFold(name, network) {
			return f.Records[name], nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNetworkNotFound, network)
}

// Arguments looks up a network and builds its constructor arguments.
func (f *File) Arguments(network string) (Arguments, error) {
	rec, err := f.Lookup(network)
	if err != nil {
		return Arguments{}, err
	}
	args, err := rec.Arguments()
	if err != nil {
		return Arguments{}, fmt.Errorf("network %s: %w", network, err)
	}
	return args, nil
}

// Networks returns the configured network names, sorted.
func (f *File) Networks() []string {
	names := make([]string, 0, len(f.Records))
	for name := range f.Records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildArguments loads path and returns the constructor arguments for network.
func BuildArguments(path, network string) (Arguments, error) {
	f, err := Load(path)
	if err != nil {
		return Arguments{}, err
	}
	return f.Arguments(network)
}
