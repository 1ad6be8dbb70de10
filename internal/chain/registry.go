package chain

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// BSCMainnet is the BNB Smart Chain main network (0x38).
	BSCMainnet uint64 = 56
	// BSCTestnet is the BNB Smart Chain test network (0x61).
	BSCTestnet uint64 = 97
)

//go:embed chains.yaml
var builtinChains []byte

// NativeCurrency describes the gas asset of a network.
type NativeCurrency struct {
	Name     string `yaml:"name" json:"name"`
	Symbol   string `yaml:"symbol" json:"symbol"`
	Decimals uint8  `yaml:"decimals" json:"decimals"`
}

// Descriptor is everything a wallet needs to add a network it does not know.
type Descriptor struct {
	ID             uint64         `yaml:"id"`
	Name           string         `yaml:"name"`
	RPCURLs        []string       `yaml:"rpc_urls"`
	ExplorerURLs   []string       `yaml:"explorer_urls"`
	NativeCurrency NativeCurrency `yaml:"native_currency"`
}

// AddChainParams is the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
}

// AddChainParams converts the descriptor into its EIP-3085 form.
func (d Descriptor) AddChainParams() AddChainParams {
	return AddChainParams{
		ChainID:           HexID(d.ID),
		ChainName:         d.Name,
		RPCURLs:           d.RPCURLs,
		BlockExplorerURLs: d.ExplorerURLs,
		NativeCurrency:    d.NativeCurrency,
	}
}

// TxURL links a transaction hash on the network's first explorer.
func (d Descriptor) TxURL(hash string) string {
	if len(d.ExplorerURLs) == 0 {
		return ""
	}
	return strings.TrimRight(d.ExplorerURLs[0], "/") + "/tx/" + hash
}

// Registry indexes chain descriptors by id.
type Registry struct {
	byID map[uint64]Descriptor
}

type registryDocument struct {
	Chains []Descriptor `yaml:"chains"`
}

// Parse decodes a YAML registry document.
func Parse(data []byte) (*Registry, error) {
	var doc registryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode chain registry: %w", err)
	}
	reg := &Registry{byID: make(map[uint64]Descriptor, len(doc.Chains))}
	for _, d := range doc.Chains {
		if d.ID == 0 {
			return nil, fmt.Errorf("chain %q has no id", d.Name)
		}
		if len(d.RPCURLs) == 0 {
			return nil, fmt.Errorf("chain %d has no rpc url", d.ID)
		}
		if d.NativeCurrency.Decimals == 0 {
			d.NativeCurrency.Decimals = 18
		}
		if _, dup := reg.byID[d.ID]; dup {
			return nil, fmt.Errorf("chain %d declared twice", d.ID)
		}
		reg.byID[d.ID] = d
	}
	return reg, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry compiled into the binary.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := Parse(builtinChains)
		if err != nil {
			panic(err)
		}
		defaultRegistry = reg
	})
	return defaultRegistry
}

// Lookup returns the descriptor for id.
func (r *Registry) Lookup(id uint64) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}
