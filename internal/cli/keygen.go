package cli

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/spltoken/internal/solana"
	"github.com/spf13/cobra"
)

type KeygenCmd struct{}

func NewKeygenCmd() *KeygenCmd {
	return &KeygenCmd{}
}

func (c *KeygenCmd) Command() *cobra.Command {
	var outfile string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a keypair in solana-keygen format",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outfile == "" {
				keypairJSON, err := solana.GenerateKeypairJSON()
				if err != nil {
					return fmt.Errorf("failed to generate keypair: %w", err)
				}
				pubkey, err := solana.PubkeyFromKeypairJSON(keypairJSON)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "pubkey: %s\n", pubkey)
				fmt.Fprintln(cmd.OutOrStdout(), string(keypairJSON))
				return nil
			}

			key, err := solanago.NewRandomPrivateKey()
			if err != nil {
				return fmt.Errorf("failed to generate keypair: %w", err)
			}
			if err := solana.WriteKeypairFile(outfile, key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pubkey: %s\nwrote: %s\n", key.PublicKey(), outfile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outfile, "outfile", "o", "", "write the keypair to this file instead of stdout")

	return cmd
}
