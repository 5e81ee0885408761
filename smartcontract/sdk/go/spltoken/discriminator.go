package spltoken

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrAmountRequired = errors.New("amount is required")
)

// InstructionDiscriminator returns the 8 byte Anchor discriminator for the named instruction.
func InstructionDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// amountToUint64 checks that amount is a positive integer that fits the program's u64 argument.
func amountToUint64(amount *big.Int) (uint64, error) {
	if amount == nil {
		return 0, ErrAmountRequired
	}
	if amount.Sign() <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %s", amount)
	}
	if !amount.IsUint64() {
		return 0, fmt.Errorf("amount %s exceeds u64 range", amount)
	}
	return amount.Uint64(), nil
}

func validateMetadataFields(name, symbol, uri string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name length %d exceeds max %d", len(name), MaxNameLength)
	}
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if len(symbol) > MaxSymbolLength {
		return fmt.Errorf("symbol length %d exceeds max %d", len(symbol), MaxSymbolLength)
	}
	if len(uri) > MaxURILength {
		return fmt.Errorf("uri length %d exceeds max %d", len(uri), MaxURILength)
	}
	return nil
}
