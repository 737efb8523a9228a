// Package keys resolves and holds the signing key the action gateway uses to
// submit transactions. Keys come either raw from the environment or from a
// password-encrypted keyfile on disk.
package keys

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Keyring wraps a secp256k1 private key together with its derived address.
type Keyring struct {
	priv    *ecdsa.PrivateKey
	address common.Address
}

// Config carries the information Open needs to resolve a private key.
// Populate the fields from the wallet section of the daemon configuration.
type Config struct {
	// RawPrivateKey is the hex-encoded private key (with or without 0x
	// prefix). If non-empty it takes precedence.
	RawPrivateKey string

	// EncryptedKeyPath is the path to a JSON file produced by EncryptKey.
	EncryptedKeyPath string

	// KeyPassword decrypts the file at EncryptedKeyPath.
	KeyPassword string
}

// Open resolves the private key per Config and returns a ready Keyring.
func Open(cfg Config) (*Keyring, error) {
	keyHex, err := resolveKeyHex(cfg)
	if err != nil {
		return nil, err
	}

	priv, err := ethcrypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("keys: invalid private key: %w", err)
	}

	return &Keyring{
		priv:    priv,
		address: ethcrypto.PubkeyToAddress(priv.PublicKey),
	}, nil
}

// PrivateKey returns the underlying signing key.
func (k *Keyring) PrivateKey() *ecdsa.PrivateKey { return k.priv }

// Address returns the address derived from the signing key.
func (k *Keyring) Address() common.Address { return k.address }

// IsOwner reports whether the keyring's address matches the given owner
// address, compared case-insensitively. An empty owner never matches: the
// check does not default to permissive.
func (k *Keyring) IsOwner(owner string) bool {
	if k == nil || owner == "" {
		return false
	}
	return strings.EqualFold(k.address.Hex(), owner)
}
