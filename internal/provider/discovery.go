package provider

// Vendor identifies the wallet behind a provider.
type Vendor string

const (
	VendorNone     Vendor = "none"
	VendorMetaMask Vendor = "metamask"
	VendorTrust    Vendor = "trust"
	VendorCoinbase Vendor = "coinbase"
	VendorGeneric  Vendor = "generic"
)

// Environment is the set of providers the host exposes, in discovery order.
type Environment []Provider

// Detection is the result of probing an Environment.
type Detection struct {
	Installed bool     `json:"installed"`
	Vendor    Vendor   `json:"vendor"`
	Provider  Provider `json:"-"`
}

// Probe classifies the environment's providers without talking to them.
// Priority: trust flag, then metamask, then coinbase, then the first provider.
func Probe(env Environment) Detection {
	if len(env) == 0 {
		return Detection{Installed: false, Vendor: VendorNone}
	}
	for _, p := range env {
		if f := p.Flags(); f.IsTrust || f.IsTrustWallet {
			return Detection{Installed: true, Vendor: VendorTrust, Provider: p}
		}
	}
	for _, p := range env {
		if p.Flags().IsMetaMask {
			return Detection{Installed: true, Vendor: VendorMetaMask, Provider: p}
		}
	}
	for _, p := range env {
		if p.Flags().IsCoinbaseWallet {
			return Detection{Installed: true, Vendor: VendorCoinbase, Provider: p}
		}
	}
	return Detection{Installed: true, Vendor: VendorGeneric, Provider: env[0]}
}

// FlagsFor returns the flags a wallet of the given vendor announces.
func FlagsFor(v Vendor) Flags {
	switch v {
	case VendorMetaMask:
		return Flags{Name: "MetaMask", IsMetaMask: true}
	case VendorTrust:
		return Flags{Name: "Trust Wallet", IsTrust: true, IsTrustWallet: true}
	case VendorCoinbase:
		return Flags{Name: "Coinbase Wallet", IsCoinbaseWallet: true}
	default:
		return Flags{Name: "Injected"}
	}
}
