package hdwallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/sha3"
)

var (
	ErrInvalidMnemonic   = errors.New("invalid mnemonic")
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

const (
	// mnemonicEntropyBits yields a 12-word phrase.
	mnemonicEntropyBits = 128

	// BasePath is the fixed BIP-44 derivation prefix (Ethereum coin type).
	// Account keys live at BasePath/{index}.
	BasePath = "m/44'/60'/0'/0"
)

// DerivedAccount is the result of deriving one child key. PrivateKey is the
// raw 32-byte secp256k1 scalar; the caller owns it and wipes it when done.
type DerivedAccount struct {
	Address    string
	PrivateKey []byte
	Path       string
}

// GenerateMnemonic returns a fresh, checksum-valid 12-word phrase.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether the phrase passes BIP-39 checksum
// validation.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// DeriveAccount derives the child key at BasePath/{index}. The derivation is
// fully deterministic: the same (mnemonic, index) always yields the same
// address, key and path.
func DeriveAccount(mnemonic string, index uint32) (*DerivedAccount, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	// m/44'/60'/0'/0/{index}
	steps := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart + 0,
		0,
		index,
	}
	key := master
	for _, step := range steps {
		if key, err = key.Derive(step); err != nil {
			return nil, fmt.Errorf("derive child %d: %w", step, err)
		}
	}

	privKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract private key: %w", err)
	}

	return &DerivedAccount{
		Address:    pubKeyAddress(privKey.PubKey()),
		PrivateKey: privKey.Serialize(),
		Path:       fmt.Sprintf("%s/%d", BasePath, index),
	}, nil
}

// AddressFromPrivateKey computes the checksummed address for a raw 32-byte
// private key. Used for imported accounts and for drift checks on reveal.
func AddressFromPrivateKey(privateKey []byte) (string, error) {
	if len(privateKey) != 32 {
		return "", ErrInvalidPrivateKey
	}
	priv, _ := btcec.PrivKeyFromBytes(privateKey)
	if priv.Key.IsZero() {
		return "", ErrInvalidPrivateKey
	}
	return pubKeyAddress(priv.PubKey()), nil
}

// ParsePrivateKeyHex decodes a hex private key, with or without 0x prefix.
func ParsePrivateKeyHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	return raw, nil
}

// pubKeyAddress computes the EIP-55 checksummed Ethereum address of a
// secp256k1 public key: keccak256 of the uncompressed point minus its
// prefix byte, last 20 bytes.
func pubKeyAddress(pub *btcec.PublicKey) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(pub.SerializeUncompressed()[1:])
	return checksumAddress(hash.Sum(nil)[12:])
}

// checksumAddress applies EIP-55 mixed-case checksumming to a 20-byte
// address.
func checksumAddress(addr []byte) string {
	lower := hex.EncodeToString(addr)

	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hash.Sum(nil)

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' {
			nibble := digest[i/2] >> 4
			if i%2 == 1 {
				nibble = digest[i/2] & 0x0f
			}
			if nibble >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}
