package spltoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNoPrivateKey is returned when a transaction signing operation is attempted without a configured private key.
	ErrNoPrivateKey = errors.New("no private key configured")

	// ErrNoProgramID is returned when a transaction signing operation is attempted without a configured program ID.
	ErrNoProgramID = errors.New("no program ID configured")

	// ErrSignatureNotVisible is returned when a sent transaction never shows up in signature status queries.
	ErrSignatureNotVisible = errors.New("signature not found after wait")
)

type executor struct {
	log                   *slog.Logger
	rpc                   RPCClient
	signer                *solana.PrivateKey
	programID             solana.PublicKey
	commitment            solanarpc.CommitmentType
	waitForVisibleTimeout time.Duration
	pollInterval          time.Duration
	clock                 clockwork.Clock
}

type ExecutorOption func(*executor)

func WithWaitForVisibleTimeout(timeout time.Duration) ExecutorOption {
	return func(e *executor) {
		e.waitForVisibleTimeout = timeout
	}
}

// WithCommitment sets the commitment level a transaction must reach before it is considered
// done. Only confirmed and finalized are meaningful.
func WithCommitment(commitment solanarpc.CommitmentType) ExecutorOption {
	return func(e *executor) {
		e.commitment = commitment
	}
}

func WithPollInterval(interval time.Duration) ExecutorOption {
	return func(e *executor) {
		e.pollInterval = interval
	}
}

func WithClock(clock clockwork.Clock) ExecutorOption {
	return func(e *executor) {
		e.clock = clock
	}
}

func NewExecutor(log *slog.Logger, rpc RPCClient, signer *solana.PrivateKey, programID solana.PublicKey, opts ...ExecutorOption) *executor {
	e := &executor{
		log:                   log,
		rpc:                   rpc,
		signer:                signer,
		programID:             programID,
		commitment:            solanarpc.CommitmentConfirmed,
		waitForVisibleTimeout: 10 * time.Second,
		pollInterval:          500 * time.Millisecond,
		clock:                 clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type ExecuteTransactionOptions struct {
	SkipPreflight bool

	// Signers are additional keypairs that must sign, such as a freshly generated mint.
	Signers []solana.PrivateKey
}

func (e *executor) ExecuteTransaction(ctx context.Context, instruction solana.Instruction, opts *ExecuteTransactionOptions) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	return e.ExecuteTransactions(ctx, []solana.Instruction{instruction}, opts)
}

func (e *executor) ExecuteTransactions(ctx context.Context, instructions []solana.Instruction, opts *ExecuteTransactionOptions) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	if opts == nil {
		opts = &ExecuteTransactionOptions{}
	}

	if e.signer == nil {
		return solana.Signature{}, nil, ErrNoPrivateKey
	}
	if e.programID.IsZero() {
		return solana.Signature{}, nil, ErrNoProgramID
	}

	blockhashResult, err := e.rpc.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhashResult.Value.Blockhash,
		solana.TransactionPayer(e.signer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if tx == nil {
		return solana.Signature{}, nil, errors.New("transaction build failed: nil result")
	}

	signers := make(map[solana.PublicKey]*solana.PrivateKey, len(opts.Signers)+1)
	signers[e.signer.PublicKey()] = e.signer
	for i := range opts.Signers {
		signers[opts.Signers[i].PublicKey()] = &opts.Signers[i]
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return signers[key]
	})
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to sign transaction (likely missing signer): %w", err)
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, nil, errors.New("signed transaction appears malformed")
	}

	sig, err := e.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: e.commitment,
	})
	if err != nil {
		if pe, ok := programErrorFromRPC(err); ok {
			return solana.Signature{}, nil, pe
		}
		return solana.Signature{}, nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	e.log.Debug("--> Transaction sent", "sig", sig, "instructions", len(instructions))

	err = e.waitForSignatureVisible(ctx, sig)
	if err != nil {
		if opts.SkipPreflight {
			return sig, nil, fmt.Errorf("transaction dropped or rejected before cluster saw it. make sure you have sufficient funds for the transaction: %w", err)
		}
		return sig, nil, fmt.Errorf("transaction dropped or rejected before cluster saw it: %w", err)
	}

	res, err := e.waitForCommitment(ctx, sig)
	if err != nil {
		return sig, nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if res.Meta.Err != nil {
		return sig, res, newProgramError(sig, res.Meta.Err, res.Meta.LogMessages)
	}

	return sig, res, nil
}

func (e *executor) waitForSignatureVisible(ctx context.Context, sig solana.Signature) error {
	deadline := e.clock.Now().Add(e.waitForVisibleTimeout)

	for e.clock.Now().Before(deadline) {
		resp, err := e.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return err
		}
		if len(resp.Value) > 0 && resp.Value[0] != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(e.pollInterval):
		}
	}
	return ErrSignatureNotVisible
}

func (e *executor) reached(status solanarpc.ConfirmationStatusType) bool {
	switch e.commitment {
	case solanarpc.CommitmentFinalized:
		return status == solanarpc.ConfirmationStatusFinalized
	default:
		return status == solanarpc.ConfirmationStatusConfirmed || status == solanarpc.ConfirmationStatusFinalized
	}
}

func (e *executor) waitForCommitment(ctx context.Context, sig solana.Signature) (*solanarpc.GetTransactionResult, error) {
	e.log.Debug("--> Waiting for transaction", "sig", sig, "commitment", e.commitment)
	start := e.clock.Now()
	for {
		statusResp, err := e.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return nil, err
		}
		if len(statusResp.Value) == 0 {
			return nil, errors.New("transaction not found")
		}
		status := statusResp.Value[0]
		if status != nil && e.reached(status.ConfirmationStatus) {
			e.log.Debug("--> Transaction reached commitment", "sig", sig, "status", status.ConfirmationStatus, "duration", e.clock.Since(start))
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.clock.After(e.pollInterval):
			e.log.Debug("--> Still waiting for transaction", "sig", sig, "elapsed", e.clock.Since(start))
		}
	}

	tx, err := e.rpc.GetTransaction(ctx, sig, &solanarpc.GetTransactionOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: e.commitment,
	})
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.Meta == nil {
		return nil, errors.New("transaction not found or missing metadata after confirmation")
	}
	return tx, nil
}
