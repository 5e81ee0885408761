package spltoken

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

type TransferTokensInstructionConfig struct {
	Sender   solana.PublicKey
	Receiver solana.PublicKey
	Mint     solana.PublicKey
	Amount   *big.Int

	// SenderTokenAccount overrides the sender's associated token account when set.
	SenderTokenAccount solana.PublicKey
}

func (c *TransferTokensInstructionConfig) Validate() error {
	if c.Sender.IsZero() {
		return fmt.Errorf("sender public key is required")
	}
	if c.Receiver.IsZero() {
		return fmt.Errorf("receiver public key is required")
	}
	if c.Mint.IsZero() {
		return fmt.Errorf("mint public key is required")
	}
	if _, err := amountToUint64(c.Amount); err != nil {
		return err
	}
	return nil
}

func BuildTransferTokensInstruction(
	programID solana.PublicKey,
	config TransferTokensInstructionConfig,
) (solana.Instruction, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	amount, _ := amountToUint64(config.Amount)

	data, err := borsh.Serialize(struct {
		Discriminator [8]byte
		Amount        uint64
	}{
		Discriminator: InstructionDiscriminator(TransferTokensInstructionName),
		Amount:        amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize args: %w", err)
	}

	senderTokenAccount := config.SenderTokenAccount
	if senderTokenAccount.IsZero() {
		senderTokenAccount, _, err = DeriveAssociatedTokenAddress(config.Sender, config.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive sender token account: %w", err)
		}
	}
	receiverTokenAccount, _, err := DeriveAssociatedTokenAddress(config.Receiver, config.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive receiver token account: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: config.Sender, IsSigner: true, IsWritable: true},
		{PublicKey: senderTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: receiverTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: config.Receiver, IsSigner: false, IsWritable: false},
		{PublicKey: config.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
	}

	return &solana.GenericInstruction{
		ProgID:        programID,
		AccountValues: accounts,
		DataBytes:     data,
	}, nil
}
