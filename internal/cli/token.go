package cli

import (
	"context"
	"fmt"

	"github.com/malbeclabs/spltoken/internal/solana"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
	"github.com/spf13/cobra"
)

type CreateMintCmd struct {
	flags *globalFlags
}

func NewCreateMintCmd(flags *globalFlags) *CreateMintCmd {
	return &CreateMintCmd{flags: flags}
}

func (c *CreateMintCmd) Command() *cobra.Command {
	var name, symbol, uri, mintKeypair string
	var decimals uint8

	cmd := &cobra.Command{
		Use:   "create-mint",
		Short: "Create a new token mint",
		RunE: withSession(c.flags, true, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			params := spltoken.CreateTokenMintParams{
				Metadata: spltoken.TokenMintMetadata{Name: name, Symbol: symbol, URI: uri, Decimals: decimals},
			}
			if mintKeypair != "" {
				key, err := solana.LoadKeypair(mintKeypair)
				if err != nil {
					return err
				}
				params.MintKeypair = &key
			}

			mint, sig, _, err := s.client.CreateTokenMint(ctx, params)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mint: %s\nsignature: %s\n", mint, sig)
			return nil
		}),
	}

	cmd.Flags().StringVar(&name, "name", "", "token name (seeded mode)")
	cmd.Flags().StringVar(&symbol, "symbol", "", "token symbol (seeded mode)")
	cmd.Flags().StringVar(&uri, "uri", "", "metadata JSON URI (seeded mode)")
	cmd.Flags().Uint8Var(&decimals, "decimals", spltoken.KeypairMintDecimals, "mint decimals (seeded mode)")
	cmd.Flags().StringVar(&mintKeypair, "mint-keypair", "", "keypair file for the new mint (keypair mode, random when empty)")

	return cmd
}

type MintCmd struct {
	flags *globalFlags
}

func NewMintCmd(flags *globalFlags) *MintCmd {
	return &MintCmd{flags: flags}
}

func (c *MintCmd) Command() *cobra.Command {
	var mintStr, amountStr, ownerStr string

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint tokens into an owner's associated token account",
		RunE: withSession(c.flags, true, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("mint", mintStr)
			if err != nil {
				return err
			}
			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}
			owner := s.signer.PublicKey()
			if ownerStr != "" {
				if owner, err = parsePublicKey("owner", ownerStr); err != nil {
					return err
				}
			}

			sig, _, err := s.client.MintTokens(ctx, mint, owner, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "minted %s to %s\nsignature: %s\n", amount, owner, sig)
			return nil
		}),
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "mint address")
	cmd.Flags().StringVar(&amountStr, "amount", "", "amount in base units")
	cmd.Flags().StringVar(&ownerStr, "owner", "", "owner of the destination account (default: signer)")

	return cmd
}

type TransferCmd struct {
	flags *globalFlags
}

func NewTransferCmd(flags *globalFlags) *TransferCmd {
	return &TransferCmd{flags: flags}
}

func (c *TransferCmd) Command() *cobra.Command {
	var mintStr, amountStr, toStr string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer tokens from the signer to another owner",
		RunE: withSession(c.flags, true, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("mint", mintStr)
			if err != nil {
				return err
			}
			to, err := parsePublicKey("to", toStr)
			if err != nil {
				return err
			}
			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}

			sig, _, err := s.client.TransferTokens(ctx, mint, to, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transferred %s to %s\nsignature: %s\n", amount, to, sig)
			return nil
		}),
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "mint address")
	cmd.Flags().StringVar(&amountStr, "amount", "", "amount in base units")
	cmd.Flags().StringVar(&toStr, "to", "", "receiving owner")

	return cmd
}

type BurnCmd struct {
	flags *globalFlags
}

func NewBurnCmd(flags *globalFlags) *BurnCmd {
	return &BurnCmd{flags: flags}
}

func (c *BurnCmd) Command() *cobra.Command {
	var mintStr, amountStr string

	cmd := &cobra.Command{
		Use:   "burn",
		Short: "Burn tokens held by the signer",
		RunE: withSession(c.flags, true, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("mint", mintStr)
			if err != nil {
				return err
			}
			amount, err := parseAmount(amountStr)
			if err != nil {
				return err
			}

			sig, _, err := s.client.BurnTokens(ctx, mint, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "burned %s\nsignature: %s\n", amount, sig)
			return nil
		}),
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "mint address")
	cmd.Flags().StringVar(&amountStr, "amount", "", "amount in base units")

	return cmd
}

type MetadataCmd struct {
	flags *globalFlags
}

func NewMetadataCmd(flags *globalFlags) *MetadataCmd {
	return &MetadataCmd{flags: flags}
}

func (c *MetadataCmd) Command() *cobra.Command {
	var mintStr, name, symbol, uri string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Attach Metaplex metadata to a mint (keypair mode)",
		RunE: withSession(c.flags, true, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			mint, err := parsePublicKey("mint", mintStr)
			if err != nil {
				return err
			}

			address, sig, _, err := s.client.CreateTokenMetadata(ctx, mint, spltoken.TokenMetadataParams{
				Name:   name,
				Symbol: symbol,
				URI:    uri,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "metadata: %s\nsignature: %s\n", address, sig)
			return nil
		}),
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "mint address")
	cmd.Flags().StringVar(&name, "name", "", "token name")
	cmd.Flags().StringVar(&symbol, "symbol", "", "token symbol")
	cmd.Flags().StringVar(&uri, "uri", "", "metadata JSON URI")

	return cmd
}
