package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
	"github.com/spf13/cobra"
)

type BalanceCmd struct {
	flags *globalFlags
}

func NewBalanceCmd(flags *globalFlags) *BalanceCmd {
	return &BalanceCmd{flags: flags}
}

func (c *BalanceCmd) Command() *cobra.Command {
	var mintStr, ownerStr, accountStr string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a token account balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The signer is only needed to default the owner.
			needSigner := ownerStr == "" && accountStr == ""
			return withSession(c.flags, needSigner, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
				var account solana.PublicKey
				var err error
				switch {
				case accountStr != "":
					if account, err = parsePublicKey("account", accountStr); err != nil {
						return err
					}
				default:
					mint, err := parsePublicKey("mint", mintStr)
					if err != nil {
						return err
					}
					owner := s.signer.PublicKey()
					if ownerStr != "" {
						if owner, err = parsePublicKey("owner", ownerStr); err != nil {
							return err
						}
					}
					if account, _, err = spltoken.DeriveAssociatedTokenAddress(owner, mint); err != nil {
						return err
					}
				}

				ta, err := s.client.GetTokenAccount(ctx, account)
				if errors.Is(err, spltoken.ErrAccountNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "account: %s\nbalance: 0 (account does not exist)\n", account)
					return nil
				}
				if err != nil {
					return err
				}
				decimals, err := s.client.MintDecimals(ctx, ta.Mint)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "account: %s\nmint: %s\nowner: %s\nbalance: %s (%s)\n",
					account, ta.Mint, ta.Owner, ta.Amount, formatUnits(ta.Amount.String(), decimals))
				return nil
			})(cmd, args)
		},
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "mint address")
	cmd.Flags().StringVar(&ownerStr, "owner", "", "token owner (default: signer)")
	cmd.Flags().StringVar(&accountStr, "account", "", "token account address, instead of --mint/--owner")

	return cmd
}

type DeriveCmd struct {
	flags *globalFlags
}

func NewDeriveCmd(flags *globalFlags) *DeriveCmd {
	return &DeriveCmd{flags: flags}
}

func (c *DeriveCmd) Command() *cobra.Command {
	var mintStr, ownerStr string

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the program derived addresses used by the token program",
		RunE: withSession(c.flags, false, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			programID := s.cluster.ProgramID
			out := cmd.OutOrStdout()

			var mint solana.PublicKey
			var err error
			switch {
			case mintStr != "":
				if mint, err = parsePublicKey("mint", mintStr); err != nil {
					return err
				}
			case s.mode == spltoken.MintModeSeeded:
				if mint, err = s.client.SeededMintAddress(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("--mint is required in %s mode", s.mode)
			}

			fmt.Fprintf(out, "program: %s (%s)\n", programID, s.mode)
			fmt.Fprintf(out, "mint: %s (off-curve: %t)\n", mint, spltoken.IsOffCurve(mint))
			if s.mode == spltoken.MintModeSeeded {
				authority, bump, err := spltoken.DeriveAuthorityPDA(programID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "authority: %s (bump %d, off-curve: %t)\n", authority, bump, spltoken.IsOffCurve(authority))
			}
			metadata, bump, err := spltoken.DeriveMetadataPDA(s.cluster.MetadataProgramID, mint)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "metadata: %s (bump %d, off-curve: %t)\n", metadata, bump, spltoken.IsOffCurve(metadata))

			if ownerStr != "" {
				owner, err := parsePublicKey("owner", ownerStr)
				if err != nil {
					return err
				}
				ata, _, err := spltoken.DeriveAssociatedTokenAddress(owner, mint)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "token account: %s (off-curve: %t)\n", ata, spltoken.IsOffCurve(ata))
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&mintStr, "mint", "", "mint address (default: the seeded mint PDA)")
	cmd.Flags().StringVar(&ownerStr, "owner", "", "also derive this owner's associated token account")

	return cmd
}

// formatUnits renders a base unit amount with the mint's decimals.
func formatUnits(amount string, decimals uint8) string {
	if decimals == 0 {
		return amount
	}
	d := int(decimals)
	for len(amount) <= d {
		amount = "0" + amount
	}
	whole, frac := amount[:len(amount)-d], amount[len(amount)-d:]
	for len(frac) > 0 && frac[len(frac)-1] == '0' {
		frac = frac[:len(frac)-1]
	}
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
