package spltoken

import (
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// DeserializeMint decodes an SPL token mint account.
func DeserializeMint(address solana.PublicKey, data []byte) (*Mint, error) {
	if len(data) < MintAccountSize {
		return nil, fmt.Errorf("account data too short for mint: %d bytes", len(data))
	}
	var raw token.Mint
	if err := bin.NewBinDecoder(data).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode mint: %w", err)
	}
	return &Mint{
		Address:         address,
		MintAuthority:   raw.MintAuthority,
		FreezeAuthority: raw.FreezeAuthority,
		Supply:          new(big.Int).SetUint64(raw.Supply),
		Decimals:        raw.Decimals,
		IsInitialized:   raw.IsInitialized,
	}, nil
}

// DeserializeTokenAccount decodes an SPL token account.
func DeserializeTokenAccount(address solana.PublicKey, data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("account data too short for token account: %d bytes", len(data))
	}
	var raw token.Account
	if err := bin.NewBinDecoder(data).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode token account: %w", err)
	}
	return &TokenAccount{
		Address:  address,
		Mint:     raw.Mint,
		Owner:    raw.Owner,
		Amount:   new(big.Int).SetUint64(raw.Amount),
		Delegate: raw.Delegate,
		State:    raw.State,
	}, nil
}

// DeserializeMetadata decodes a Metaplex metadata account.
// It validates the account key before decoding.
func DeserializeMetadata(data []byte) (*Metadata, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("account data too short: %d bytes", len(data))
	}
	if data[0] != MetadataKeyV1 {
		return nil, fmt.Errorf("unexpected metadata key: got %d, want %d", data[0], MetadataKeyV1)
	}

	var md Metadata
	if err := md.Deserialize(data); err != nil {
		return nil, fmt.Errorf("failed to deserialize metadata: %w", err)
	}
	return &md, nil
}
