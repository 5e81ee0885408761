package spltoken

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

type MintTokensInstructionConfig struct {
	Mode  MintMode
	Payer solana.PublicKey

	// Mint is required by the keypair flavour; the seeded flavour derives it.
	Mint solana.PublicKey

	// MintAuthority is required by the keypair flavour; the seeded flavour signs with its PDA.
	MintAuthority solana.PublicKey

	// Recipient owns the destination associated token account, created if missing.
	Recipient solana.PublicKey
	Amount    *big.Int
}

func (c *MintTokensInstructionConfig) Validate() error {
	if c.Payer.IsZero() {
		return fmt.Errorf("payer public key is required")
	}
	if c.Recipient.IsZero() {
		return fmt.Errorf("recipient public key is required")
	}
	switch c.Mode {
	case MintModeKeypair:
		if c.Mint.IsZero() {
			return fmt.Errorf("mint public key is required")
		}
		if c.MintAuthority.IsZero() {
			return fmt.Errorf("mint authority public key is required")
		}
	case MintModeSeeded:
	default:
		return fmt.Errorf("invalid mint mode %q", c.Mode)
	}
	if _, err := amountToUint64(c.Amount); err != nil {
		return err
	}
	return nil
}

func BuildMintTokensInstruction(
	programID solana.PublicKey,
	config MintTokensInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	amount, _ := amountToUint64(config.Amount)

	data, err := borsh.Serialize(struct {
		Discriminator [8]byte
		Amount        uint64
	}{
		Discriminator: InstructionDiscriminator(MintTokensInstructionName),
		Amount:        amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	var accounts []*solana.AccountMeta
	switch config.Mode {
	case MintModeKeypair:
		destination, _, err := DeriveAssociatedTokenAddress(config.Recipient, config.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive associated token address: %w", err)
		}
		accounts = []*solana.AccountMeta{
			{PublicKey: config.Mint, IsSigner: false, IsWritable: true},
			{PublicKey: destination, IsSigner: false, IsWritable: true},
			{PublicKey: config.Payer, IsSigner: true, IsWritable: true},
			{PublicKey: config.MintAuthority, IsSigner: config.MintAuthority.Equals(config.Payer), IsWritable: false},
			{PublicKey: config.Recipient, IsSigner: false, IsWritable: false},
			{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
			{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
			{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
			{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		}
	case MintModeSeeded:
		mintPDA, _, err := DeriveMintPDA(programID)
		if err != nil {
			return nil, fmt.Errorf("failed to derive mint PDA: %w", err)
		}
		authorityPDA, _, err := DeriveAuthorityPDA(programID)
		if err != nil {
			return nil, fmt.Errorf("failed to derive authority PDA: %w", err)
		}
		destination, _, err := DeriveAssociatedTokenAddress(config.Recipient, mintPDA)
		if err != nil {
			return nil, fmt.Errorf("failed to derive associated token address: %w", err)
		}
		accounts = []*solana.AccountMeta{
			{PublicKey: mintPDA, IsSigner: false, IsWritable: true},
			{PublicKey: authorityPDA, IsSigner: false, IsWritable: false},
			{PublicKey: destination, IsSigner: false, IsWritable: true},
			{PublicKey: config.Recipient, IsSigner: false, IsWritable: false},
			{PublicKey: config.Payer, IsSigner: true, IsWritable: true},
			{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
			{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
			{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
			{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		}
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}
