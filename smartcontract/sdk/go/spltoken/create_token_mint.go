package spltoken

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// TokenMintMetadata is the argument of the seeded flavour's create_token_mint.
type TokenMintMetadata struct {
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
}

type CreateTokenMintInstructionConfig struct {
	Mode  MintMode
	Payer solana.PublicKey

	// Mint and MintAuthority are used by the keypair flavour. The mint must co-sign.
	Mint          solana.PublicKey
	MintAuthority solana.PublicKey

	// Metadata and MetadataProgramID are used by the seeded flavour.
	Metadata          TokenMintMetadata
	MetadataProgramID solana.PublicKey
}

func (c *CreateTokenMintInstructionConfig) Validate() error {
	if c.Payer.IsZero() {
		return fmt.Errorf("payer public key is required")
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
		if err := validateMetadataFields(c.Metadata.Name, c.Metadata.Symbol, c.Metadata.URI); err != nil {
			return err
		}
		if c.MetadataProgramID.IsZero() {
			c.MetadataProgramID = TokenMetadataProgramID
		}
	default:
		return fmt.Errorf("invalid mint mode %q", c.Mode)
	}
	return nil
}

func BuildCreateTokenMintInstruction(
	programID solana.PublicKey,
	config CreateTokenMintInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	if config.Mode == MintModeKeypair {
		data, err := borsh.Serialize(struct {
			Discriminator [8]byte
		}{
			Discriminator: InstructionDiscriminator(CreateTokenMintInstructionName),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to serialize args: %w", err)
		}

		accounts := []*solana.AccountMeta{
			{PublicKey: config.Mint, IsSigner: true, IsWritable: true},
			{PublicKey: config.Payer, IsSigner: true, IsWritable: true},
			{PublicKey: config.MintAuthority, IsSigner: false, IsWritable: false},
			{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
			{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
			{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		}

		return &solana.GenericInstruction{
			ProgID:        programID,
			AccountValues: accounts,
			DataBytes:     data,
		}, nil
	}

	data, err := borsh.Serialize(struct {
		Discriminator [8]byte
		Metadata      TokenMintMetadata
	}{
		Discriminator: InstructionDiscriminator(CreateTokenMintInstructionName),
		Metadata:      config.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	mintPDA, _, err := DeriveMintPDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive mint PDA: %w", err)
	}
	authorityPDA, _, err := DeriveAuthorityPDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive authority PDA: %w", err)
	}
	metadataPDA, _, err := DeriveMetadataPDA(config.MetadataProgramID, mintPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to derive metadata PDA: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: metadataPDA, IsSigner: false, IsWritable: true},
		{PublicKey: mintPDA, IsSigner: false, IsWritable: true},
		{PublicKey: authorityPDA, IsSigner: false, IsWritable: false},
		{PublicKey: config.Payer, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: config.MetadataProgramID, IsSigner: false, IsWritable: false},
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}
