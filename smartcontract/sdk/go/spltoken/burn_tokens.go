package spltoken

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

type BurnTokensInstructionConfig struct {
	Authority solana.PublicKey
	Mint      solana.PublicKey
	Amount    *big.Int

	// TokenAccount defaults to the authority's associated token account.
	TokenAccount solana.PublicKey
}

func (c *BurnTokensInstructionConfig) Validate() error {
	if c.Authority.IsZero() {
		return fmt.Errorf("authority public key is required")
	}
	if c.Mint.IsZero() {
		return fmt.Errorf("mint public key is required")
	}
	if _, err := amountToUint64(c.Amount); err != nil {
		return err
	}
	return nil
}

func BuildBurnTokensInstruction(
	programID solana.PublicKey,
	config BurnTokensInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	amount, _ := amountToUint64(config.Amount)

	data, err := borsh.Serialize(struct {
		Discriminator [8]byte
		Amount        uint64
	}{
		Discriminator: InstructionDiscriminator(BurnTokensInstructionName),
		Amount:        amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	tokenAccount := config.TokenAccount
	if tokenAccount.IsZero() {
		tokenAccount, _, err = DeriveAssociatedTokenAddress(config.Authority, config.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive token account: %w", err)
		}
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: tokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: config.Mint, IsSigner: false, IsWritable: true},
		{PublicKey: config.Authority, IsSigner: true, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}
