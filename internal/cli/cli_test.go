package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/spltoken/config"
	"github.com/malbeclabs/spltoken/internal/scenario"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		config.EnvVarEnv,
		config.EnvVarRPCURL,
		config.EnvVarProgramID,
		config.EnvVarKeypair,
		config.EnvVarMintMode,
		config.EnvVarSecretKey,
	} {
		t.Setenv(v, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(BuildInfo{Version: "test", Commit: "none", Date: "unknown"})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func executeWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd(BuildInfo{Version: "test", Commit: "none", Date: "unknown"})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCLI_Derive_SeededDefaults(t *testing.T) {
	clearEnv(t)

	out, err := execute(t, "-e", config.EnvLocalnet, "--mode", "seeded", "derive")
	require.NoError(t, err)

	mint, _, err := spltoken.DeriveMintPDA(spltoken.SeededMintProgramID)
	require.NoError(t, err)
	authority, _, err := spltoken.DeriveAuthorityPDA(spltoken.SeededMintProgramID)
	require.NoError(t, err)
	metadata, _, err := spltoken.DeriveMetadataPDA(spltoken.TokenMetadataProgramID, mint)
	require.NoError(t, err)

	require.Contains(t, out, "program: "+spltoken.SeededMintProgramID.String())
	require.Contains(t, out, "mint: "+mint.String()+" (off-curve: true)")
	require.Contains(t, out, "authority: "+authority.String())
	require.Contains(t, out, "metadata: "+metadata.String())
	require.NotContains(t, out, "off-curve: false")
}

func TestCLI_Derive_KeypairRequiresMint(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "-e", config.EnvLocalnet, "derive")
	require.ErrorContains(t, err, "--mint is required")

	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	out, err := execute(t, "-e", config.EnvLocalnet, "derive", "--mint", mint.String(), "--owner", owner.String())
	require.NoError(t, err)

	ata, _, err := spltoken.DeriveAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	require.Contains(t, out, "program: "+spltoken.KeypairMintProgramID.String())
	require.Contains(t, out, "token account: "+ata.String()+" (off-curve: true)")
	require.Contains(t, out, "mint: "+mint.String()+" (off-curve: false)", "a keypair mint is a curve point")
	require.NotContains(t, out, "authority:")
}

func TestCLI_InvalidConfiguration(t *testing.T) {
	clearEnv(t)

	_, err := execute(t, "-e", "moonnet", "derive", "--mint", solana.NewWallet().PublicKey().String())
	require.ErrorIs(t, err, config.ErrInvalidEnvironment)

	_, err = execute(t, "-e", config.EnvLocalnet, "--mode", "custodial", "derive")
	require.ErrorContains(t, err, "invalid mint mode")

	_, err = execute(t, "-e", config.EnvLocalnet, "--commitment", "processed", "derive")
	require.ErrorContains(t, err, "invalid commitment")

	_, err = execute(t, "-e", config.EnvLocalnet, "--program-id", "nope", "derive")
	require.ErrorContains(t, err, "failed to parse program ID")
}

func TestCLI_MissingSigner(t *testing.T) {
	clearEnv(t)

	missing := filepath.Join(t.TempDir(), "missing.json")
	_, err := execute(t, "-e", config.EnvLocalnet, "--keypair", missing, "burn", "--mint", solana.NewWallet().PublicKey().String(), "--amount", "1")
	require.ErrorContains(t, err, "keypair file not found")
}

func TestCLI_VerboseLogsResolvedEndpoints(t *testing.T) {
	clearEnv(t)

	_, stderr, err := executeWithStderr(t, "-e", config.EnvLocalnet, "--mode", "seeded", "-v", "derive")
	require.NoError(t, err)
	require.Contains(t, stderr, "Resolved configuration")
	require.Contains(t, stderr, config.LocalnetSolanaRPC)
	require.Contains(t, stderr, config.LocalnetSolanaWSURL)
}

func TestCLI_Scenario_RejectsNegativeRepeat(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvVarSecretKey, solana.NewWallet().PrivateKey.String())

	_, err := execute(t, "-e", config.EnvLocalnet, "scenario", "--repeat=-1")
	require.ErrorIs(t, err, scenario.ErrInvalidRepeat)
}

func TestCLI_Scenario_RejectsSignerAsReceiver(t *testing.T) {
	clearEnv(t)
	key := solana.NewWallet().PrivateKey
	t.Setenv(config.EnvVarSecretKey, key.String())

	_, err := execute(t, "-e", config.EnvLocalnet, "scenario", "--receiver", key.PublicKey().String())
	require.ErrorIs(t, err, scenario.ErrInvalidReceiver)
}

func TestCLI_SecretKeyFromEnvironment(t *testing.T) {
	clearEnv(t)
	key := solana.NewWallet().PrivateKey
	t.Setenv(config.EnvVarSecretKey, key.String())

	signer, err := loadSigner("/does/not/exist.json")
	require.NoError(t, err)
	require.Equal(t, key.PublicKey(), signer.PublicKey())
}

func TestCLI_Keygen(t *testing.T) {
	clearEnv(t)

	out, err := execute(t, "keygen")
	require.NoError(t, err)
	var ints []int
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &ints))
	require.Len(t, ints, 64)

	path := filepath.Join(t.TempDir(), "id.json")
	out, err = execute(t, "keygen", "--outfile", path)
	require.NoError(t, err)

	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	require.NoError(t, err)
	require.Contains(t, out, "pubkey: "+key.PublicKey().String())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestCLI_ParseAmount(t *testing.T) {
	t.Parallel()

	v, err := parseAmount("18446744073709551615")
	require.NoError(t, err)
	require.Equal(t, "18446744073709551615", v.String())

	for _, bad := range []string{"", "0", "-1", "1.5", "18446744073709551616", "ten"} {
		_, err := parseAmount(bad)
		require.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestCLI_FormatUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount   string
		decimals uint8
		want     string
	}{
		{"4000000000", 9, "4"},
		{"4500000000", 9, "4.5"},
		{"1", 9, "0.000000001"},
		{"0", 9, "0"},
		{"123", 0, "123"},
		{"1000001", 6, "1.000001"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, formatUnits(tt.amount, tt.decimals), tt.amount)
	}
}
