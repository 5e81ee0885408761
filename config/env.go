package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

const (
	EnvMainnetBeta = "mainnet-beta"
	EnvMainnet     = "mainnet"
	EnvTestnet     = "testnet"
	EnvDevnet      = "devnet"
	EnvLocalnet    = "localnet"
)

var (
	ErrInvalidEnvironment = fmt.Errorf("invalid environment")
)

type ClusterConfig struct {
	Moniker           string
	RPCURL            string
	WSURL             string
	ProgramID         solana.PublicKey
	MetadataProgramID solana.PublicKey
	MintMode          string
	KeypairPath       string
}

// ClusterConfigForEnv returns the endpoint and program configuration for env, with environment
// variable overrides applied.
func ClusterConfigForEnv(env string) (*ClusterConfig, error) {
	var config *ClusterConfig
	switch env {
	case EnvMainnetBeta, EnvMainnet:
		config = &ClusterConfig{
			Moniker: EnvMainnetBeta,
			RPCURL:  MainnetSolanaRPC,
			WSURL:   MainnetSolanaWSURL,
		}
	case EnvTestnet:
		config = &ClusterConfig{
			Moniker: EnvTestnet,
			RPCURL:  TestnetSolanaRPC,
			WSURL:   TestnetSolanaWSURL,
		}
	case EnvDevnet:
		config = &ClusterConfig{
			Moniker: EnvDevnet,
			RPCURL:  DevnetSolanaRPC,
			WSURL:   DevnetSolanaWSURL,
		}
	case EnvLocalnet:
		config = &ClusterConfig{
			Moniker: EnvLocalnet,
			RPCURL:  LocalnetSolanaRPC,
			WSURL:   LocalnetSolanaWSURL,
		}
	default:
		return nil, fmt.Errorf("%w %q, must be one of: %s, %s, %s, %s", ErrInvalidEnvironment, env, EnvMainnetBeta, EnvTestnet, EnvDevnet, EnvLocalnet)
	}

	config.MintMode = DefaultMintMode
	config.KeypairPath = DefaultKeypair
	config.MetadataProgramID = solana.MustPublicKeyFromBase58(TokenMetadataProgramID)

	if v := os.Getenv(EnvVarRPCURL); v != "" {
		config.RPCURL = v
	}
	if v := os.Getenv(EnvVarMintMode); v != "" {
		config.MintMode = v
	}
	if v := os.Getenv(EnvVarKeypair); v != "" {
		config.KeypairPath = v
	}

	programID := KeypairMintProgramID
	if config.MintMode == "seeded" {
		programID = SeededMintProgramID
	}
	if v := os.Getenv(EnvVarProgramID); v != "" {
		programID = v
	}
	pk, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse program ID %q: %w", programID, err)
	}
	config.ProgramID = pk

	return config, nil
}

// EnvFromEnvironment returns the environment named by SPLTOKEN_ENV, or the default.
func EnvFromEnvironment() string {
	if v := os.Getenv(EnvVarEnv); v != "" {
		return v
	}
	return DefaultEnv
}

// LoadDotEnv loads variables from the given files into the process environment. Missing files
// are skipped and variables that are already set are left alone.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DefaultDotEnvFile}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
