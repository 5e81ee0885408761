package spltoken

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MintMode selects which flavour of the token program the client talks to.
type MintMode string

const (
	// MintModeKeypair is the flavour where the mint is a fresh keypair that co-signs
	// create_token_mint and the wallet is the mint authority.
	MintModeKeypair MintMode = "keypair"

	// MintModeSeeded is the flavour where the mint and its authority are program derived
	// addresses and metadata is created together with the mint.
	MintModeSeeded MintMode = "seeded"
)

func (m MintMode) String() string {
	return string(m)
}

func ParseMintMode(s string) (MintMode, error) {
	switch MintMode(s) {
	case MintModeKeypair:
		return MintModeKeypair, nil
	case MintModeSeeded:
		return MintModeSeeded, nil
	default:
		return "", fmt.Errorf("invalid mint mode %q: must be %q or %q", s, MintModeKeypair, MintModeSeeded)
	}
}

const (
	CreateTokenMintInstructionName     = "create_token_mint"
	MintTokensInstructionName          = "mint_tokens"
	TransferTokensInstructionName      = "transfer_tokens"
	BurnTokensInstructionName          = "burn_tokens"
	CreateTokenMetadataInstructionName = "create_token_metadata"
)

const (
	MintSeed      = "mint"
	AuthoritySeed = "authority"
	MetadataSeed  = "metadata"
)

const (
	// KeypairMintDecimals is fixed by the keypair flavour of the program.
	KeypairMintDecimals uint8 = 9

	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

var (
	// TokenMetadataProgramID is the Metaplex token metadata program.
	TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

	// KeypairMintProgramID is the default deployment of the keypair flavour.
	KeypairMintProgramID = solana.MustPublicKeyFromBase58("A1DwTAisxvTXSAKDFQnvtY1uVXjLgiuw2pYqQF2pk3VH")

	// SeededMintProgramID is the default deployment of the seeded flavour.
	SeededMintProgramID = solana.MustPublicKeyFromBase58("DngBV6YuyztBJucqPHTTHtTuk99jDc1yv7y8SQQKA53s")
)
