package spltoken

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

type CreateTokenMetadataInstructionConfig struct {
	Payer             solana.PublicKey
	Mint              solana.PublicKey
	MintAuthority     solana.PublicKey
	Name              string
	Symbol            string
	URI               string
	MetadataProgramID solana.PublicKey
}

func (c *CreateTokenMetadataInstructionConfig) Validate() error {
	if c.Payer.IsZero() {
		return fmt.Errorf("payer public key is required")
	}
	if c.Mint.IsZero() {
		return fmt.Errorf("mint public key is required")
	}
	if c.MintAuthority.IsZero() {
		return fmt.Errorf("mint authority public key is required")
	}
	if err := validateMetadataFields(c.Name, c.Symbol, c.URI); err != nil {
		return err
	}
	if c.MetadataProgramID.IsZero() {
		c.MetadataProgramID = TokenMetadataProgramID
	}
	return nil
}

func BuildCreateTokenMetadataInstruction(
	programID solana.PublicKey,
	config CreateTokenMetadataInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	data, err := borsh.Serialize(struct {
		Discriminator [8]byte
		Name          string
		Symbol        string
		URI           string
	}{
		Discriminator: InstructionDiscriminator(CreateTokenMetadataInstructionName),
		Name:          config.Name,
		Symbol:        config.Symbol,
		URI:           config.URI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	metadataPDA, _, err := DeriveMetadataPDA(config.MetadataProgramID, config.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive metadata PDA: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: metadataPDA, IsSigner: false, IsWritable: true},
		{PublicKey: config.Mint, IsSigner: false, IsWritable: true},
		{PublicKey: config.MintAuthority, IsSigner: true, IsWritable: true},
		{PublicKey: config.Payer, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: config.MetadataProgramID, IsSigner: false, IsWritable: false},
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}
