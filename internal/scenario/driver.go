package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/spltoken/internal/metrics"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
)

const (
	StepCreateMint     = "create-mint"
	StepMintTokens     = "mint-tokens"
	StepTransferTokens = "transfer-tokens"
	StepBurnTokens     = "burn-tokens"
	StepAttachMetadata = "attach-metadata"
	StepFinalBalance   = "final-balance"

	createAssociatedTokenAccountInstructionName = "create_associated_token_account"
)

var (
	ErrClientRequired = errors.New("client is required")
	ErrLoggerRequired = errors.New("logger is required")
	ErrSignerRequired = errors.New("client has no signer")
	ErrModeMismatch   = errors.New("plan mode does not match client mode")

	ErrRepeatUnsupported = errors.New("repeated runs are not supported")
	ErrInvalidRepeat     = errors.New("invalid repeat count")
)

// TokenClient is the subset of the spltoken client the driver needs.
type TokenClient interface {
	Mode() spltoken.MintMode
	Signer() *solana.PrivateKey
	SeededMintAddress() (solana.PublicKey, error)
	MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error)

	CreateTokenMint(ctx context.Context, params spltoken.CreateTokenMintParams) (solana.PublicKey, solana.Signature, *solanarpc.GetTransactionResult, error)
	MintTokens(ctx context.Context, mint solana.PublicKey, recipient solana.PublicKey, amount *big.Int) (solana.Signature, *solanarpc.GetTransactionResult, error)
	TransferTokens(ctx context.Context, mint solana.PublicKey, receiver solana.PublicKey, amount *big.Int) (solana.Signature, *solanarpc.GetTransactionResult, error)
	BurnTokens(ctx context.Context, mint solana.PublicKey, amount *big.Int) (solana.Signature, *solanarpc.GetTransactionResult, error)
	CreateTokenMetadata(ctx context.Context, mint solana.PublicKey, params spltoken.TokenMetadataParams) (solana.PublicKey, solana.Signature, *solanarpc.GetTransactionResult, error)
	CreateAssociatedTokenAccount(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, solana.Signature, *solanarpc.GetTransactionResult, error)

	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)
	GetMint(ctx context.Context, mint solana.PublicKey) (*spltoken.Mint, error)
	GetTokenBalanceOrZero(ctx context.Context, address solana.PublicKey) (*big.Int, error)
	GetMetadata(ctx context.Context, mint solana.PublicKey) (*spltoken.Metadata, error)
}

type Config struct {
	Logger *slog.Logger
	Client TokenClient
	Plan   Plan
	Clock  clockwork.Clock
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.Client == nil {
		return ErrClientRequired
	}
	if c.Client.Signer() == nil {
		return ErrSignerRequired
	}
	if err := c.Plan.Validate(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	receiver, ok, err := c.Plan.ReceiverPublicKey()
	if err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	if ok && receiver.Equals(c.Client.Signer().PublicKey()) {
		return fmt.Errorf("%w: receiver %s is the signer, a transfer to it would not move tokens", ErrInvalidReceiver, receiver)
	}
	if c.Plan.Mode != c.Client.Mode() {
		return fmt.Errorf("%w: plan %q, client %q", ErrModeMismatch, c.Plan.Mode, c.Client.Mode())
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Driver runs a plan against the token program one step at a time. Every step submits, waits
// for confirmation, then checks on-chain state against a snapshot taken before submission. The
// first failure ends the run; nothing is retried or rolled back.
type Driver struct {
	log    *slog.Logger
	client TokenClient
	plan   Plan
	clock  clockwork.Clock
}

func New(cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		log:    cfg.Logger,
		client: cfg.Client,
		plan:   cfg.Plan,
		clock:  cfg.Clock,
	}, nil
}

type step struct {
	name string
	run  func(ctx context.Context, res *StepResult) error
}

// run holds the addresses shared between the steps of a single run.
type run struct {
	*Driver
	report *Report

	mintKey     *solana.PrivateKey
	mint        solana.PublicKey
	holder      solana.PublicKey
	receiver    solana.PublicKey
	holderATA   solana.PublicKey
	receiverATA solana.PublicKey
}

// Run executes the plan once against a fresh mint. The report is returned even when a step
// fails; the error is then a *StepError.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	r, err := d.newRun()
	if err != nil {
		return nil, err
	}

	steps := []step{
		{StepCreateMint, r.createMint},
		{StepMintTokens, r.mintTokens},
		{StepTransferTokens, r.transferTokens},
		{StepBurnTokens, r.burnTokens},
		{StepAttachMetadata, r.attachMetadata},
		{StepFinalBalance, r.finalBalance},
	}

	start := d.clock.Now()
	defer func() {
		r.report.Duration = d.clock.Since(start)
	}()

	for i, s := range steps {
		res := StepResult{Name: s.name, Status: StepStatusOK}
		stepStart := d.clock.Now()
		err := s.run(ctx, &res)
		res.Duration = d.clock.Since(stepStart)

		if err != nil {
			stepErr := newStepError(s.name, err)
			res.Status = StepStatusFailed
			res.Err = err
			r.report.Steps = append(r.report.Steps, res)
			for _, rest := range steps[i+1:] {
				r.report.Steps = append(r.report.Steps, StepResult{Name: rest.name, Status: StepStatusSkipped})
			}
			r.recordFailure(res, stepErr)
			metrics.ScenarioRuns.WithLabelValues(metrics.StatusFailure).Inc()
			d.log.Error("Scenario step failed", "step", s.name, "kind", stepErr.Kind, "error", err, "sig", res.Signature)
			return r.report, stepErr
		}

		metrics.StepDuration.WithLabelValues(s.name, metrics.StatusSuccess).Observe(res.Duration.Seconds())
		r.report.Steps = append(r.report.Steps, res)
		d.log.Info("Scenario step passed", "step", s.name, "sig", res.Signature, "observed", res.Observed, "duration", res.Duration)
	}

	metrics.ScenarioRuns.WithLabelValues(metrics.StatusSuccess).Inc()
	return r.report, nil
}

func (d *Driver) newRun() (*run, error) {
	holder := d.client.Signer().PublicKey()
	r := &run{
		Driver: d,
		holder: holder,
		report: &Report{Mode: d.plan.Mode, Holder: holder},
	}

	receiver, ok, err := d.plan.ReceiverPublicKey()
	if err != nil {
		return nil, err
	}
	if !ok {
		receiver = solana.NewWallet().PublicKey()
	}
	r.receiver = receiver
	r.report.Receiver = receiver

	switch d.plan.Mode {
	case spltoken.MintModeKeypair:
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate mint keypair: %w", err)
		}
		r.mintKey = &key
		r.mint = key.PublicKey()
	case spltoken.MintModeSeeded:
		r.mint, err = d.client.SeededMintAddress()
		if err != nil {
			return nil, err
		}
		if err := spltoken.RequireOffCurve(r.mint); err != nil {
			return nil, fmt.Errorf("seeded mint: %w", err)
		}
	}
	r.report.Mint = r.mint

	if r.holderATA, _, err = spltoken.DeriveAssociatedTokenAddress(r.holder, r.mint); err != nil {
		return nil, fmt.Errorf("failed to derive holder token account: %w", err)
	}
	if r.receiverATA, _, err = spltoken.DeriveAssociatedTokenAddress(r.receiver, r.mint); err != nil {
		return nil, fmt.Errorf("failed to derive receiver token account: %w", err)
	}
	return r, nil
}

func (r *run) recordFailure(res StepResult, stepErr *StepError) {
	metrics.StepDuration.WithLabelValues(res.Name, metrics.StatusFailure).Observe(res.Duration.Seconds())
	switch stepErr.Kind {
	case ErrorKindAssertion:
		metrics.AssertionFailures.WithLabelValues(res.Name).Inc()
	default:
		if res.Instruction != "" {
			metrics.TransactionsFailed.WithLabelValues(res.Instruction, string(stepErr.Kind)).Inc()
		}
	}
}

func (r *run) submit(res *StepResult, instruction string) {
	res.Instruction = instruction
	metrics.TransactionsSubmitted.WithLabelValues(instruction).Inc()
	r.log.Debug("Submitting transaction", "step", res.Name, "instruction", instruction)
}

func (r *run) createMint(ctx context.Context, res *StepResult) error {
	exists, err := r.client.AccountExists(ctx, r.mint)
	if err != nil {
		return err
	}
	if exists {
		return &AssertionError{Check: "mint account before create", Expected: "absent", Observed: "exists at " + r.mint.String()}
	}

	r.submit(res, spltoken.CreateTokenMintInstructionName)
	mint, sig, _, err := r.client.CreateTokenMint(ctx, spltoken.CreateTokenMintParams{
		MintKeypair: r.mintKey,
		Metadata: spltoken.TokenMintMetadata{
			Name:     r.plan.Metadata.Name,
			Symbol:   r.plan.Metadata.Symbol,
			URI:      r.plan.Metadata.URI,
			Decimals: r.plan.Decimals,
		},
	})
	res.Signature = sig
	if err != nil {
		return err
	}
	if !mint.Equals(r.mint) {
		return &AssertionError{Check: "mint address", Expected: r.mint.String(), Observed: mint.String()}
	}

	state, err := r.client.GetMint(ctx, r.mint)
	if err != nil {
		return err
	}
	res.Expected = fmt.Sprintf("initialized decimals=%d supply=0", r.plan.Decimals)
	res.Observed = fmt.Sprintf("initialized=%t decimals=%d supply=%s", state.IsInitialized, state.Decimals, state.Supply)
	if !state.IsInitialized || state.Decimals != r.plan.Decimals || state.Supply.Sign() != 0 {
		return &AssertionError{Check: "mint state", Expected: res.Expected, Observed: res.Observed}
	}
	return nil
}

func (r *run) mintTokens(ctx context.Context, res *StepResult) error {
	amount := r.plan.MintAmount.Int
	before, err := r.client.GetTokenBalanceOrZero(ctx, r.holderATA)
	if err != nil {
		return err
	}
	supplyBefore, err := r.supply(ctx)
	if err != nil {
		return err
	}

	r.submit(res, spltoken.MintTokensInstructionName)
	sig, _, err := r.client.MintTokens(ctx, r.mint, r.holder, amount)
	res.Signature = sig
	if err != nil {
		return err
	}

	if err := r.expectBalance(ctx, res, "holder balance", r.holderATA, new(big.Int).Add(before, amount)); err != nil {
		return err
	}
	return r.expectSupply(ctx, new(big.Int).Add(supplyBefore, amount))
}

func (r *run) transferTokens(ctx context.Context, res *StepResult) error {
	amount := r.plan.TransferAmount.Int

	// The seeded flavour's flow pre-creates the receiver's token account.
	if r.plan.Mode == spltoken.MintModeSeeded {
		exists, err := r.client.AccountExists(ctx, r.receiverATA)
		if err != nil {
			return err
		}
		if !exists {
			r.submit(res, createAssociatedTokenAccountInstructionName)
			_, sig, _, err := r.client.CreateAssociatedTokenAccount(ctx, r.receiver, r.mint)
			if err != nil {
				res.Signature = sig
				return err
			}
			res.SetupInstruction = createAssociatedTokenAccountInstructionName
			res.SetupSignature = sig
			r.log.Debug("Created receiver token account", "account", r.receiverATA, "sig", sig)
		}
	}

	senderBefore, err := r.client.GetTokenBalanceOrZero(ctx, r.holderATA)
	if err != nil {
		return err
	}
	receiverBefore, err := r.client.GetTokenBalanceOrZero(ctx, r.receiverATA)
	if err != nil {
		return err
	}
	supplyBefore, err := r.supply(ctx)
	if err != nil {
		return err
	}

	r.submit(res, spltoken.TransferTokensInstructionName)
	sig, _, err := r.client.TransferTokens(ctx, r.mint, r.receiver, amount)
	res.Signature = sig
	if err != nil {
		return err
	}

	senderAfter, err := r.client.GetTokenBalanceOrZero(ctx, r.holderATA)
	if err != nil {
		return err
	}
	receiverAfter, err := r.client.GetTokenBalanceOrZero(ctx, r.receiverATA)
	if err != nil {
		return err
	}

	wantSender := new(big.Int).Sub(senderBefore, amount)
	wantReceiver := new(big.Int).Add(receiverBefore, amount)
	res.Expected = fmt.Sprintf("sender=%s receiver=%s", wantSender, wantReceiver)
	res.Observed = fmt.Sprintf("sender=%s receiver=%s", senderAfter, receiverAfter)
	if senderAfter.Cmp(wantSender) != 0 || receiverAfter.Cmp(wantReceiver) != 0 {
		return &AssertionError{Check: "transfer balances", Expected: res.Expected, Observed: res.Observed}
	}

	sumBefore := new(big.Int).Add(senderBefore, receiverBefore)
	sumAfter := new(big.Int).Add(senderAfter, receiverAfter)
	if sumBefore.Cmp(sumAfter) != 0 {
		return &AssertionError{Check: "balance sum", Expected: sumBefore.String(), Observed: sumAfter.String()}
	}
	return r.expectSupply(ctx, supplyBefore)
}

func (r *run) burnTokens(ctx context.Context, res *StepResult) error {
	amount := r.plan.BurnAmount.Int
	before, err := r.client.GetTokenBalanceOrZero(ctx, r.holderATA)
	if err != nil {
		return err
	}
	supplyBefore, err := r.supply(ctx)
	if err != nil {
		return err
	}

	r.submit(res, spltoken.BurnTokensInstructionName)
	sig, _, err := r.client.BurnTokens(ctx, r.mint, amount)
	res.Signature = sig
	if err != nil {
		return err
	}

	if err := r.expectBalance(ctx, res, "holder balance", r.holderATA, new(big.Int).Sub(before, amount)); err != nil {
		return err
	}
	return r.expectSupply(ctx, new(big.Int).Sub(supplyBefore, amount))
}

func (r *run) attachMetadata(ctx context.Context, res *StepResult) error {
	want, err := r.client.MetadataAddress(r.mint)
	if err != nil {
		return err
	}
	if !spltoken.IsOffCurve(want) {
		return &AssertionError{Check: "metadata address off curve", Expected: "off-curve", Observed: "on-curve " + want.String()}
	}

	switch r.plan.Mode {
	case spltoken.MintModeKeypair:
		r.submit(res, spltoken.CreateTokenMetadataInstructionName)
		address, sig, _, err := r.client.CreateTokenMetadata(ctx, r.mint, spltoken.TokenMetadataParams{
			Name:   r.plan.Metadata.Name,
			Symbol: r.plan.Metadata.Symbol,
			URI:    r.plan.Metadata.URI,
		})
		res.Signature = sig
		if err != nil {
			return err
		}
		if !address.Equals(want) {
			return &AssertionError{Check: "metadata address", Expected: want.String(), Observed: address.String()}
		}
	case spltoken.MintModeSeeded:
		r.log.Debug("Metadata was created with the mint", "metadata", want)
	}
	r.report.Metadata = want

	md, err := r.client.GetMetadata(ctx, r.mint)
	if err != nil {
		return err
	}
	res.Expected = fmt.Sprintf("%s/%s %s", r.plan.Metadata.Name, r.plan.Metadata.Symbol, r.plan.Metadata.URI)
	res.Observed = fmt.Sprintf("%s/%s %s", md.Name, md.Symbol, md.URI)
	if md.Name != r.plan.Metadata.Name || md.Symbol != r.plan.Metadata.Symbol || md.URI != r.plan.Metadata.URI {
		return &AssertionError{Check: "metadata fields", Expected: res.Expected, Observed: res.Observed}
	}
	if !md.Mint.Equals(r.mint) {
		return &AssertionError{Check: "metadata mint", Expected: r.mint.String(), Observed: md.Mint.String()}
	}
	return nil
}

func (r *run) finalBalance(ctx context.Context, res *StepResult) error {
	if err := r.expectBalance(ctx, res, "final holder balance", r.holderATA, r.plan.FinalBalance()); err != nil {
		return err
	}
	r.report.FinalBalance = r.plan.FinalBalance()
	return nil
}

func (r *run) supply(ctx context.Context) (*big.Int, error) {
	state, err := r.client.GetMint(ctx, r.mint)
	if err != nil {
		return nil, err
	}
	return state.Supply, nil
}

func (r *run) expectBalance(ctx context.Context, res *StepResult, check string, account solana.PublicKey, want *big.Int) error {
	got, err := r.client.GetTokenBalanceOrZero(ctx, account)
	if err != nil {
		return err
	}
	res.Expected = want.String()
	res.Observed = got.String()
	if got.Cmp(want) != 0 {
		return &AssertionError{Check: check, Expected: want.String(), Observed: got.String()}
	}
	return nil
}

func (r *run) expectSupply(ctx context.Context, want *big.Int) error {
	got, err := r.supply(ctx)
	if err != nil {
		return err
	}
	if got.Cmp(want) != 0 {
		return &AssertionError{Check: "mint supply", Expected: want.String(), Observed: got.String()}
	}
	return nil
}

// RunRepeated runs the plan count times, waiting interval between runs. Each run creates its own
// mint. A count of zero runs until ctx is done. Failed runs are logged and counted but do not stop
// the loop; the last error is returned.
func (d *Driver) RunRepeated(ctx context.Context, count int, interval time.Duration, onReport func(*Report)) error {
	if count < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRepeat, count)
	}
	if count != 1 && d.plan.Mode == spltoken.MintModeSeeded {
		return fmt.Errorf("%w: the seeded flavour has a single mint per program", ErrRepeatUnsupported)
	}

	var lastErr error
	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-d.clock.After(interval):
			}
		}

		report, err := d.Run(ctx)
		if report != nil && onReport != nil {
			onReport(report)
		}
		d.log.Info("Scenario run finished", "run", i+1, "failed", err != nil)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return lastErr
			}
		}
	}
	return lastErr
}
