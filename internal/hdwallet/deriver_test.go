package hdwallet

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference phrase from the BIP-39 English test vectors.
const vectorMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 12)
	assert.True(t, ValidateMnemonic(mnemonic))

	other, err := GenerateMnemonic()
	require.NoError(t, err)
	assert.NotEqual(t, mnemonic, other)
}

func TestDeriveAccountDeterministic(t *testing.T) {
	first, err := DeriveAccount(vectorMnemonic, 0)
	require.NoError(t, err)
	second, err := DeriveAccount(vectorMnemonic, 0)
	require.NoError(t, err)

	assert.Equal(t, first.Address, second.Address)
	assert.Equal(t, first.PrivateKey, second.PrivateKey)
	assert.Equal(t, "m/44'/60'/0'/0/0", first.Path)
}

func TestDeriveAccountKnownVector(t *testing.T) {
	derived, err := DeriveAccount(vectorMnemonic, 0)
	require.NoError(t, err)
	// Standard first address for the all-abandon test phrase.
	assert.True(t, strings.EqualFold(
		"0x9858EfFD232B4033E47d90003D41EC34EcaEda94", derived.Address))
}

func TestDeriveAccountDistinctIndices(t *testing.T) {
	a, err := DeriveAccount(vectorMnemonic, 0)
	require.NoError(t, err)
	b, err := DeriveAccount(vectorMnemonic, 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.Address, b.Address)
	assert.NotEqual(t, a.PrivateKey, b.PrivateKey)
	assert.Equal(t, "m/44'/60'/0'/0/1", b.Path)
}

func TestDeriveAccountInvalidMnemonic(t *testing.T) {
	_, err := DeriveAccount("definitely not a valid phrase", 0)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestAddressFromPrivateKeyMatchesDerivation(t *testing.T) {
	derived, err := DeriveAccount(vectorMnemonic, 3)
	require.NoError(t, err)

	address, err := AddressFromPrivateKey(derived.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, derived.Address, address)
}

func TestParsePrivateKeyHex(t *testing.T) {
	derived, err := DeriveAccount(vectorMnemonic, 0)
	require.NoError(t, err)

	withPrefix := "0x" + hex.EncodeToString(derived.PrivateKey)
	raw, err := ParsePrivateKeyHex(withPrefix)
	require.NoError(t, err)
	assert.Equal(t, derived.PrivateKey, raw)

	raw, err = ParsePrivateKeyHex(hex.EncodeToString(derived.PrivateKey))
	require.NoError(t, err)
	assert.Equal(t, derived.PrivateKey, raw)

	_, err = ParsePrivateKeyHex("0xabcd")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = ParsePrivateKeyHex("not hex at all")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestChecksumAddressCasing(t *testing.T) {
	derived, err := DeriveAccount(vectorMnemonic, 0)
	require.NoError(t, err)

	// EIP-55 addresses round-trip through their own checksum.
	lower := strings.ToLower(derived.Address)
	assert.NotEqual(t, lower, derived.Address, "checksummed address should be mixed case")
	assert.True(t, strings.HasPrefix(derived.Address, "0x"))
	assert.Len(t, derived.Address, 42)
}
