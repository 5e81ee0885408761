package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/lmittmann/tint"
	"github.com/malbeclabs/spltoken/config"
	"github.com/malbeclabs/spltoken/internal/rpc"
	solkeys "github.com/malbeclabs/spltoken/internal/solana"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// BuildInfo is set by the linker in the main package.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var ErrInvalidAmount = errors.New("invalid amount")

type globalFlags struct {
	env        string
	rpcURL     string
	programID  string
	keypair    string
	mode       string
	commitment string
	rpcRetries int
	verbose    bool
}

func Run(build BuildInfo) ExitCode {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCodeError
	}

	if err := NewRootCmd(build).Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func NewRootCmd(build BuildInfo) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "spltoken",
		Short:        "Create, mint, transfer and burn tokens through the Anchor SPL token program.",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", build.Version, build.Commit, build.Date),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmd.Help()
			if err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.env, "env", "e", config.EnvFromEnvironment(), "cluster to use (mainnet-beta, testnet, devnet, localnet) (env: "+config.EnvVarEnv+")")
	pf.StringVar(&flags.rpcURL, "rpc-url", "", "override the cluster RPC URL (env: "+config.EnvVarRPCURL+")")
	pf.StringVar(&flags.programID, "program-id", "", "override the token program ID (env: "+config.EnvVarProgramID+")")
	pf.StringVar(&flags.keypair, "keypair", "", "path to the signer keypair (env: "+config.EnvVarKeypair+", default: "+config.DefaultKeypair+")")
	pf.StringVar(&flags.mode, "mode", "", "program flavour: keypair or seeded (env: "+config.EnvVarMintMode+", default: "+config.DefaultMintMode+")")
	pf.StringVar(&flags.commitment, "commitment", string(solanarpc.CommitmentConfirmed), "commitment to await and read at (confirmed, finalized)")
	pf.IntVar(&flags.rpcRetries, "rpc-retries", 1, "attempts per RPC request on transport failures")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "set debug logging level")

	rootCmd.AddCommand(
		NewCreateMintCmd(flags).Command(),
		NewMintCmd(flags).Command(),
		NewTransferCmd(flags).Command(),
		NewBurnCmd(flags).Command(),
		NewMetadataCmd(flags).Command(),
		NewBalanceCmd(flags).Command(),
		NewDeriveCmd(flags).Command(),
		NewKeygenCmd().Command(),
		NewScenarioCmd(flags, build).Command(),
	)

	return rootCmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// session is the resolved configuration a command runs with.
type session struct {
	log     *slog.Logger
	cluster *config.ClusterConfig
	mode    spltoken.MintMode
	signer  *solana.PrivateKey
	rpc     *solanarpc.Client
	client  *spltoken.Client
}

// resolve applies flags over the environment and per-cluster defaults. The signer is only loaded
// when needSigner is set.
func (g *globalFlags) resolve(log *slog.Logger, needSigner bool) (*session, error) {
	cluster, err := config.ClusterConfigForEnv(g.env)
	if err != nil {
		return nil, err
	}
	if g.rpcURL != "" {
		cluster.RPCURL = g.rpcURL
	}
	if g.mode != "" {
		cluster.MintMode = g.mode
		if g.programID == "" && os.Getenv(config.EnvVarProgramID) == "" {
			cluster.ProgramID = spltoken.KeypairMintProgramID
			if g.mode == string(spltoken.MintModeSeeded) {
				cluster.ProgramID = spltoken.SeededMintProgramID
			}
		}
	}
	if g.programID != "" {
		pk, err := solana.PublicKeyFromBase58(g.programID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse program ID %q: %w", g.programID, err)
		}
		cluster.ProgramID = pk
	}
	if g.keypair != "" {
		cluster.KeypairPath = g.keypair
	}

	mode, err := spltoken.ParseMintMode(cluster.MintMode)
	if err != nil {
		return nil, err
	}

	commitment := solanarpc.CommitmentType(g.commitment)
	switch commitment {
	case solanarpc.CommitmentConfirmed, solanarpc.CommitmentFinalized:
	default:
		return nil, fmt.Errorf("invalid commitment %q: must be %q or %q", g.commitment, solanarpc.CommitmentConfirmed, solanarpc.CommitmentFinalized)
	}

	s := &session{log: log, cluster: cluster, mode: mode}
	if needSigner {
		signer, err := loadSigner(cluster.KeypairPath)
		if err != nil {
			return nil, err
		}
		s.signer = &signer
	}

	s.rpc = rpc.New(cluster.RPCURL, &rpc.RetryOptions{MaxAttempts: g.rpcRetries, Logger: log})
	s.client = spltoken.New(log, s.rpc, s.signer, cluster.ProgramID, mode,
		spltoken.WithMetadataProgramID(cluster.MetadataProgramID),
		spltoken.WithClientCommitment(commitment),
	)
	log.Debug("Resolved configuration", "env", cluster.Moniker, "rpcURL", cluster.RPCURL, "wsURL", cluster.WSURL, "programID", cluster.ProgramID, "mode", mode)
	return s, nil
}

func loadSigner(keypairPath string) (solana.PrivateKey, error) {
	if secret := os.Getenv(config.EnvVarSecretKey); secret != "" {
		return solkeys.KeypairFromBase58(secret)
	}
	path, err := config.ExpandPath(keypairPath)
	if err != nil {
		return nil, err
	}
	return solkeys.LoadKeypair(path)
}

// withSession wraps a command so it runs with a resolved session and a context cancelled on
// SIGINT or SIGTERM.
func withSession(flags *globalFlags, needSigner bool, f func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		log := newLogger(cmd.ErrOrStderr(), flags.verbose)
		s, err := flags.resolve(log, needSigner)
		if err != nil {
			log.Error("failed to resolve configuration", "error", err)
			return err
		}

		err = f(ctx, s, cmd, args)
		if err != nil {
			log.Error("failed to run command", "error", err)
			return err
		}
		return nil
	}
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a base 10 integer", ErrInvalidAmount, s)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %s", ErrInvalidAmount, v)
	}
	if !v.IsUint64() {
		return nil, fmt.Errorf("%w: %s exceeds u64 range", ErrInvalidAmount, v)
	}
	return v, nil
}

func parsePublicKey(flag, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("--%s is required", flag)
	}
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s %q: %w", flag, value, err)
	}
	return pk, nil
}
