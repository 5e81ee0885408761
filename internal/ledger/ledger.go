package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/spltoken/internal/poll"
	"github.com/malbeclabs/spltoken/internal/rpc"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	EnvVarImage             = "SPLTOKEN_LEDGER_IMAGE"
	EnvVarProgramSO         = "SPLTOKEN_PROGRAM_SO"
	EnvVarMetadataProgramSO = "SPLTOKEN_METADATA_PROGRAM_SO"

	DefaultImage = "solanalabs/solana:v1.18.26"

	// The solana-test-validator runtime uses ~1.4GB baseline.
	ledgerContainerMemory = 2 * 1024 * 1024 * 1024

	internalRPCPort   = 8899
	internalRPCWSPort = 8900

	programsDir = "/programs"

	healthTimeout      = 90 * time.Second
	healthPollInterval = 500 * time.Millisecond
)

var (
	rpcPort = nat.Port(fmt.Sprintf("%d/tcp", internalRPCPort))
	wsPort  = nat.Port(fmt.Sprintf("%d/tcp", internalRPCWSPort))
)

var ErrProgramNotConfigured = errors.New("program binary not configured")

type Spec struct {
	Image string

	// ProgramID is the address the token program binary is loaded at.
	ProgramID solana.PublicKey
	ProgramSO string

	// MetadataProgramSO is a dump of the Metaplex token metadata program, loaded at
	// MetadataProgramID.
	MetadataProgramID solana.PublicKey
	MetadataProgramSO string
}

// Validate fills unset fields from the environment and checks the program binaries exist.
func (s *Spec) Validate() error {
	if s.Image == "" {
		s.Image = os.Getenv(EnvVarImage)
	}
	if s.Image == "" {
		s.Image = DefaultImage
	}
	if s.ProgramSO == "" {
		s.ProgramSO = os.Getenv(EnvVarProgramSO)
	}
	if s.MetadataProgramSO == "" {
		s.MetadataProgramSO = os.Getenv(EnvVarMetadataProgramSO)
	}
	if s.MetadataProgramID.IsZero() {
		s.MetadataProgramID = spltoken.TokenMetadataProgramID
	}
	if s.ProgramID.IsZero() {
		return fmt.Errorf("%w: program ID is required", ErrProgramNotConfigured)
	}
	for name, path := range map[string]string{EnvVarProgramSO: s.ProgramSO, EnvVarMetadataProgramSO: s.MetadataProgramSO} {
		if path == "" {
			return fmt.Errorf("%w: set %s", ErrProgramNotConfigured, name)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrProgramNotConfigured, name, err)
		}
	}
	return nil
}

func (s *Spec) validatorArgs() []string {
	return []string{
		"--reset",
		"--quiet",
		"--ledger", "/test-ledger",
		"--rpc-port", fmt.Sprintf("%d", internalRPCPort),
		"--bpf-program", s.ProgramID.String(), filepath.Join(programsDir, "token.so"),
		"--bpf-program", s.MetadataProgramID.String(), filepath.Join(programsDir, "metadata.so"),
	}
}

// Ledger is a solana-test-validator running in a container with the token and metadata programs
// preloaded.
type Ledger struct {
	log       *slog.Logger
	spec      Spec
	container testcontainers.Container

	ContainerID string
	RPCURL      string
}

func Start(ctx context.Context, log *slog.Logger, spec Spec) (*Ledger, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	log.Info("==> Starting ledger", "image", spec.Image, "programID", spec.ProgramID)

	req := testcontainers.ContainerRequest{
		Image:        spec.Image,
		Entrypoint:   []string{"solana-test-validator"},
		Cmd:          spec.validatorArgs(),
		ExposedPorts: []string{string(rpcPort), string(wsPort)},
		Files: []testcontainers.ContainerFile{
			{HostFilePath: spec.ProgramSO, ContainerFilePath: filepath.Join(programsDir, "token.so"), FileMode: 0o644},
			{HostFilePath: spec.MetadataProgramSO, ContainerFilePath: filepath.Join(programsDir, "metadata.so"), FileMode: 0o644},
		},
		WaitingFor: wait.ForListeningPort(rpcPort).WithStartupTimeout(healthTimeout),
		Resources: dockercontainer.Resources{
			Memory: ledgerContainerMemory,
		},
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
		Logger:           newContainerLogger(log, spec.Image),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start ledger: %w", err)
	}

	l := &Ledger{spec: spec, container: container, ContainerID: shortContainerID(container.GetContainerID())}
	l.log = log.With("container", l.ContainerID)

	host, err := container.Host(ctx)
	if err != nil {
		_ = l.Terminate(ctx)
		return nil, fmt.Errorf("failed to get ledger host: %w", err)
	}
	port, err := container.MappedPort(ctx, rpcPort)
	if err != nil {
		_ = l.Terminate(ctx)
		return nil, fmt.Errorf("failed to get ledger RPC port: %w", err)
	}
	l.RPCURL = "http://" + net.JoinHostPort(host, port.Port())

	if err := WaitForHealthy(ctx, l.log, clockwork.NewRealClock(), l.RPCClient(), healthTimeout); err != nil {
		_ = l.Terminate(ctx)
		return nil, fmt.Errorf("failed to wait for ledger to be healthy: %w", err)
	}

	l.log.Info("--> Ledger started", "rpcURL", l.RPCURL)
	return l, nil
}

func (l *Ledger) RPCClient() *solanarpc.Client {
	return rpc.New(l.RPCURL, nil)
}

func (l *Ledger) Terminate(ctx context.Context) error {
	if l.container == nil {
		return nil
	}
	return l.container.Terminate(ctx)
}

type HealthClient interface {
	GetHealth(ctx context.Context) (string, error)
}

// WaitForHealthy polls getHealth until the validator reports ok.
func WaitForHealthy(ctx context.Context, log *slog.Logger, clock clockwork.Clock, client HealthClient, timeout time.Duration) error {
	attempts, err := poll.Until(ctx, poll.Options{Timeout: timeout, Interval: healthPollInterval, Clock: clock}, func(ctx context.Context, attempt int) (bool, error) {
		health, err := client.GetHealth(ctx)
		if err != nil {
			if attempt == 2 {
				log.Debug("--> Waiting for ledger to be ready", "timeout", timeout, "error", err)
			}
			return false, nil
		}
		return health == solanarpc.HealthOk, nil
	})
	if err != nil {
		return fmt.Errorf("failed to wait for solana to be ready: %w", err)
	}
	log.Debug("--> Ledger healthy", "attempts", attempts)
	return nil
}

type AirdropClient interface {
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment solanarpc.CommitmentType) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
}

// Airdrop funds account with lamports and waits for the airdrop to be confirmed.
func Airdrop(ctx context.Context, clock clockwork.Clock, client AirdropClient, account solana.PublicKey, lamports uint64, timeout time.Duration) (solana.Signature, error) {
	sig, err := client.RequestAirdrop(ctx, account, lamports, solanarpc.CommitmentConfirmed)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to request airdrop: %w", err)
	}

	_, err = poll.Until(ctx, poll.Options{Timeout: timeout, Interval: healthPollInterval, Clock: clock}, func(ctx context.Context, _ int) (bool, error) {
		res, err := client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return false, nil
		}
		if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
			return false, nil
		}
		status := res.Value[0]
		if status.Err != nil {
			return false, fmt.Errorf("airdrop %s failed: %v", sig, status.Err)
		}
		return status.ConfirmationStatus == solanarpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == solanarpc.ConfirmationStatusFinalized, nil
	})
	if err != nil {
		return sig, fmt.Errorf("failed to confirm airdrop: %w", err)
	}
	return sig, nil
}

func shortContainerID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
