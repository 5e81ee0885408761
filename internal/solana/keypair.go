package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	ErrKeypairNotFound = errors.New("keypair file not found")
	ErrKeypairMismatch = errors.New("public key does not match secret key")
)

// LoadKeypair reads a solana-keygen style JSON keypair file.
func LoadKeypair(path string) (solanago.PrivateKey, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeypairNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat keypair file: %w", err)
	}
	key, err := solanago.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	if err := validateKeypair(key); err != nil {
		return nil, fmt.Errorf("invalid keypair in %s: %w", path, err)
	}
	return key, nil
}

// KeypairFromBase58 parses a base58 encoded 64 byte secret key, as printed by most wallets.
func KeypairFromBase58(s string) (solanago.PrivateKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 keypair: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid keypair length: expected %d, got %d", ed25519.PrivateKeySize, len(raw))
	}
	key := solanago.PrivateKey(raw)
	if err := validateKeypair(key); err != nil {
		return nil, fmt.Errorf("invalid base58 keypair: %w", err)
	}
	return key, nil
}

// validateKeypair checks the size and that the public half is the one derived from the seed.
func validateKeypair(key solanago.PrivateKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	derived := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !derived.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(key[ed25519.SeedSize:])) {
		return ErrKeypairMismatch
	}
	return nil
}

// GenerateKeypairJSON generates a new ed25519 keypair in solana-keygen JSON form.
func GenerateKeypairJSON() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return keypairJSON(priv)
}

func keypairJSON(priv []byte) ([]byte, error) {
	ints := make([]int, len(priv))
	for i, b := range priv {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

func PubkeyFromKeypairJSON(keypairJSON []byte) (string, error) {
	var keypair []byte
	if err := json.Unmarshal(keypairJSON, &keypair); err != nil {
		return "", fmt.Errorf("failed to unmarshal keypair JSON: %w", err)
	}

	if len(keypair) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("invalid keypair length: expected %d, got %d", ed25519.PrivateKeySize, len(keypair))
	}

	return base58.Encode(keypair[32:]), nil
}

// WriteKeypairFile writes key to path in solana-keygen JSON form, creating parent directories.
func WriteKeypairFile(path string, key solanago.PrivateKey) error {
	data, err := keypairJSON(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create keypair directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keypair file: %w", err)
	}
	return nil
}
