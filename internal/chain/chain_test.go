package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryHasBSC(t *testing.T) {
	reg := Default()

	mainnet, ok := reg.Lookup(BSCMainnet)
	require.True(t, ok)
	require.Equal(t, "BNB Smart Chain Mainnet", mainnet.Name)
	require.Equal(t, "BNB", mainnet.NativeCurrency.Symbol)
	require.EqualValues(t, 18, mainnet.NativeCurrency.Decimals)

	params := mainnet.AddChainParams()
	require.Equal(t, "0x38", params.ChainID)
	require.NotEmpty(t, params.RPCURLs)
	require.Equal(t, "https://bscscan.com/tx/0xabc", mainnet.TxURL("0xabc"))

	_, ok = reg.Lookup(BSCTestnet)
	require.True(t, ok)
	_, ok = reg.Lookup(1)
	require.False(t, ok)
}

func TestParseRejectsBrokenDocuments(t *testing.T) {
	_, err := Parse([]byte("chains:\n  - name: nameless\n    rpc_urls: [http://x]\n"))
	require.Error(t, err)

	_, err = Parse([]byte("chains:\n  - id: 5\n    name: no-rpc\n"))
	require.Error(t, err)

	_, err = Parse([]byte("chains:\n  - id: 5\n    rpc_urls: [a]\n  - id: 5\n    rpc_urls: [b]\n"))
	require.Error(t, err)
}

func TestHexIDRoundTrip(t *testing.T) {
	require.Equal(t, "0x38", HexID(56))
	require.Equal(t, "0x61", HexID(97))

	for _, in := range []string{"0x38", "0X38", "56", " 56 "} {
		id, err := ParseHexID(in)
		require.NoError(t, err, in)
		require.EqualValues(t, 56, id)
	}
	_, err := ParseHexID("0xzz")
	require.Error(t, err)
}

func TestHexQuantity(t *testing.T) {
	require.Equal(t, "0x0", HexQuantity(nil))
	require.Equal(t, "0x3b368c5678b000", HexQuantity(big.NewInt(16_667_000_000_000_000)))

	v, err := ParseHexQuantity("0x1")
	require.NoError(t, err)
	require.EqualValues(t, 1, v.Int64())

	_, err = ParseHexQuantity("1")
	require.Error(t, err)
	_, err = ParseHexQuantity("0x")
	require.Error(t, err)
}

func TestChecksumAddress(t *testing.T) {
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range vectors {
		got, err := ChecksumAddress(strings.ToLower(want))
		require.NoError(t, err)
		require.Equal(t, want, got)

		norm, err := NormalizeAddress(want)
		require.NoError(t, err)
		require.Equal(t, want, norm)
	}

	_, err := NormalizeAddress("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.ErrorIs(t, err, ErrInvalidAddress)
	_, err = ChecksumAddress("0x1234")
	require.ErrorIs(t, err, ErrInvalidAddress)
	_, err = ChecksumAddress("5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.ErrorIs(t, err, ErrInvalidAddress)

	require.True(t, SameAddress(vectors[0], strings.ToLower(vectors[0])))
	require.False(t, SameAddress(vectors[0], vectors[1]))
}

func TestWeiConversion(t *testing.T) {
	wei, err := ToWei(decimal.RequireFromString("0.016667"), 18)
	require.NoError(t, err)
	require.Equal(t, "16667000000000000", wei.String())

	back := FromWei(wei, 18)
	require.True(t, back.Equal(decimal.RequireFromString("0.016667")))

	_, err = ToWei(decimal.RequireFromString("0.0000001"), 6)
	require.Error(t, err)
}
