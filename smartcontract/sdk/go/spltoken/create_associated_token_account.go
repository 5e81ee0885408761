package spltoken

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
)

type CreateAssociatedTokenAccountInstructionConfig struct {
	Payer solana.PublicKey
	Owner solana.PublicKey
	Mint  solana.PublicKey
}

func (c *CreateAssociatedTokenAccountInstructionConfig) Validate() error {
	if c.Payer.IsZero() {
		return fmt.Errorf("payer public key is required")
	}
	if c.Owner.IsZero() {
		return fmt.Errorf("owner public key is required")
	}
	if c.Mint.IsZero() {
		return fmt.Errorf("mint public key is required")
	}
	return nil
}

// BuildCreateAssociatedTokenAccountInstruction builds a direct call to the associated token
// account program, outside of the token program.
func BuildCreateAssociatedTokenAccountInstruction(config CreateAssociatedTokenAccountInstructionConfig) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	return associatedtokenaccount.NewCreateInstruction(config.Payer, config.Owner, config.Mint).Build(), nil
}
