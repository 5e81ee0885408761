package scenario_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/spltoken/internal/scenario"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T, ledger *fakeLedger, plan scenario.Plan) *scenario.Driver {
	t.Helper()
	d, err := scenario.New(scenario.Config{
		Logger: log,
		Client: ledger,
		Plan:   plan,
	})
	require.NoError(t, err)
	return d
}

func stepStatuses(report *scenario.Report) map[string]scenario.StepStatus {
	out := make(map[string]scenario.StepStatus, len(report.Steps))
	for _, s := range report.Steps {
		out[s.Name] = s.Status
	}
	return out
}

func TestScenario_Driver_Run_KeypairDefaultPlan(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))

	report, err := d.Run(context.Background())
	require.NoError(t, err)
	require.False(t, report.Failed())
	require.Len(t, report.Steps, 6)
	for _, s := range report.Steps {
		require.Equal(t, scenario.StepStatusOK, s.Status, s.Name)
	}

	require.Equal(t, "4000000000", report.FinalBalance.String())
	require.Equal(t, "4000000000", ledger.balance(ledger.ata(report.Holder, report.Mint)).String())
	require.Equal(t, "5000000000", ledger.balance(ledger.ata(report.Receiver, report.Mint)).String())
	require.Equal(t, "9000000000", ledger.mints[report.Mint].Supply.String())

	wantMetadata, _, err := spltoken.DeriveMetadataPDA(spltoken.TokenMetadataProgramID, report.Mint)
	require.NoError(t, err)
	require.Equal(t, wantMetadata, report.Metadata)

	require.Equal(t, []string{"CreateTokenMint", "MintTokens", "TransferTokens", "BurnTokens", "CreateTokenMetadata"}, ledger.calls)

	transfer, ok := report.Step(scenario.StepTransferTokens)
	require.True(t, ok)
	require.Equal(t, "sender=5000000000 receiver=5000000000", transfer.Observed)
	require.Equal(t, spltoken.TransferTokensInstructionName, transfer.Instruction)
	require.False(t, transfer.Signature.IsZero())
}

func TestScenario_Driver_Run_SeededPrecreatesReceiverAccount(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeSeeded)
	plan := scenario.DefaultPlan(spltoken.MintModeSeeded)
	plan.Decimals = 6
	d := newDriver(t, ledger, plan)

	report, err := d.Run(context.Background())
	require.NoError(t, err)

	seeded, _, err := spltoken.DeriveMintPDA(spltoken.SeededMintProgramID)
	require.NoError(t, err)
	require.Equal(t, seeded, report.Mint)
	require.Equal(t, uint8(6), ledger.mints[seeded].Decimals)
	require.Equal(t, []string{"CreateTokenMint", "MintTokens", "CreateAssociatedTokenAccount", "TransferTokens", "BurnTokens"}, ledger.calls)

	attach, ok := report.Step(scenario.StepAttachMetadata)
	require.True(t, ok)
	require.True(t, attach.Signature.IsZero(), "seeded metadata comes from create-mint")
	require.Equal(t, "Dogecoin/DOGE https://www.jsonkeeper.com/b/5HUH", attach.Observed)

	transfer, ok := report.Step(scenario.StepTransferTokens)
	require.True(t, ok)
	require.Equal(t, "create_associated_token_account", transfer.SetupInstruction)
	require.False(t, transfer.SetupSignature.IsZero())
	require.NotEqual(t, transfer.SetupSignature, transfer.Signature)
	require.Equal(t, spltoken.TransferTokensInstructionName, transfer.Instruction)

	var buf bytes.Buffer
	report.Render(&buf)
	require.Contains(t, buf.String(), "setup transfer-tokens: create_associated_token_account "+transfer.SetupSignature.String())
}

func TestScenario_Driver_Run_SeededReceiverAccountCreationFails(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeSeeded)
	ledger.errs["CreateAssociatedTokenAccount"] = insufficientFunds()
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeSeeded))

	report, err := d.Run(context.Background())
	var stepErr *scenario.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, scenario.StepTransferTokens, stepErr.Step)
	require.Equal(t, scenario.ErrorKindProgram, stepErr.Kind)

	transfer, ok := report.Step(scenario.StepTransferTokens)
	require.True(t, ok)
	require.Equal(t, "create_associated_token_account", transfer.Instruction)
	require.NotContains(t, ledger.calls, "TransferTokens")
}

func TestScenario_Driver_Run_MetadataAddressOnCurve(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	wallet := solana.NewWallet().PublicKey()
	ledger.metadataOnCurve = &wallet
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))

	_, err := d.Run(context.Background())
	var stepErr *scenario.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, scenario.StepAttachMetadata, stepErr.Step)
	require.Equal(t, scenario.ErrorKindAssertion, stepErr.Kind)
	require.NotContains(t, ledger.calls, "CreateTokenMetadata")
}

func TestScenario_Driver_Run_SeededMintAlreadyExists(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeSeeded)
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeSeeded))

	_, err := d.Run(context.Background())
	require.NoError(t, err)

	report, err := d.Run(context.Background())
	var stepErr *scenario.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, scenario.StepCreateMint, stepErr.Step)
	require.Equal(t, scenario.ErrorKindAssertion, stepErr.Kind)
	require.Equal(t, scenario.StepStatusSkipped, stepStatuses(report)[scenario.StepMintTokens])
}

func TestScenario_Driver_Run_ProgramRejectionStopsRun(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	plan := scenario.DefaultPlan(spltoken.MintModeKeypair)
	d := newDriver(t, ledger, plan)
	ledger.errs["TransferTokens"] = insufficientFunds()

	report, err := d.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, spltoken.ErrInsufficientFunds)

	var stepErr *scenario.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, scenario.StepTransferTokens, stepErr.Step)
	require.Equal(t, scenario.ErrorKindProgram, stepErr.Kind)

	statuses := stepStatuses(report)
	require.Equal(t, scenario.StepStatusOK, statuses[scenario.StepMintTokens])
	require.Equal(t, scenario.StepStatusFailed, statuses[scenario.StepTransferTokens])
	require.Equal(t, scenario.StepStatusSkipped, statuses[scenario.StepBurnTokens])
	require.Equal(t, scenario.StepStatusSkipped, statuses[scenario.StepFinalBalance])
	require.True(t, report.Failed())
	require.NotContains(t, ledger.calls, "BurnTokens")
}

func TestScenario_Driver_Run_RPCFailure(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))
	boom := errors.New("connection refused")
	ledger.errs["AccountExists"] = boom

	_, err := d.Run(context.Background())
	require.ErrorIs(t, err, boom)

	var stepErr *scenario.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, scenario.StepCreateMint, stepErr.Step)
	require.Equal(t, scenario.ErrorKindRPC, stepErr.Kind)
	require.Empty(t, ledger.calls, "nothing is submitted after a failed precondition query")
}

func TestScenario_Driver_Run_BurnAssertionFailure(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	ledger.burnSkew = 1
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))

	report, err := d.Run(context.Background())
	var stepErr *scenario.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, scenario.StepBurnTokens, stepErr.Step)
	require.Equal(t, scenario.ErrorKindAssertion, stepErr.Kind)

	var assertErr *scenario.AssertionError
	require.ErrorAs(t, err, &assertErr)
	require.Equal(t, "holder balance", assertErr.Check)
	require.Equal(t, "4000000000", assertErr.Expected)
	require.Equal(t, "3999999999", assertErr.Observed)

	burn, ok := report.Step(scenario.StepBurnTokens)
	require.True(t, ok)
	require.Equal(t, scenario.StepStatusFailed, burn.Status)
}

func TestScenario_Driver_Run_MissingMetadata(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	ledger.dropMetadata = true
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))

	_, err := d.Run(context.Background())
	require.ErrorIs(t, err, spltoken.ErrAccountNotFound)

	var stepErr *scenario.StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, scenario.StepAttachMetadata, stepErr.Step)
}

func TestScenario_Driver_Run_FixedReceiver(t *testing.T) {
	t.Parallel()

	receiver := solana.NewWallet().PublicKey()
	ledger := newFakeLedger(spltoken.MintModeKeypair)
	plan := scenario.DefaultPlan(spltoken.MintModeKeypair)
	plan.Receiver = receiver.String()
	plan.MintAmount = scenario.NewAmount(100)
	plan.TransferAmount = scenario.NewAmount(100)
	plan.BurnAmount = scenario.NewAmount(1)

	d, err := scenario.New(scenario.Config{Logger: log, Client: ledger, Plan: plan})
	require.Nil(t, d)
	require.ErrorIs(t, err, scenario.ErrBurnTooLarge)

	plan.TransferAmount = scenario.NewAmount(60)
	d = newDriver(t, ledger, plan)
	report, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, receiver, report.Receiver)
	require.Equal(t, "60", ledger.balance(ledger.ata(receiver, report.Mint)).String())
	require.Equal(t, "39", report.FinalBalance.String())
}

func TestScenario_Config_Validate(t *testing.T) {
	t.Parallel()

	keypairLedger := newFakeLedger(spltoken.MintModeKeypair)
	noSigner := newFakeLedger(spltoken.MintModeKeypair)
	noSigner.signer = nil

	tests := []struct {
		name    string
		cfg     scenario.Config
		wantErr error
	}{
		{"missing logger", scenario.Config{Client: keypairLedger, Plan: scenario.DefaultPlan(spltoken.MintModeKeypair)}, scenario.ErrLoggerRequired},
		{"missing client", scenario.Config{Logger: log, Plan: scenario.DefaultPlan(spltoken.MintModeKeypair)}, scenario.ErrClientRequired},
		{"missing signer", scenario.Config{Logger: log, Client: noSigner, Plan: scenario.DefaultPlan(spltoken.MintModeKeypair)}, scenario.ErrSignerRequired},
		{"mode mismatch", scenario.Config{Logger: log, Client: keypairLedger, Plan: scenario.DefaultPlan(spltoken.MintModeSeeded)}, scenario.ErrModeMismatch},
		{"receiver is signer", scenario.Config{Logger: log, Client: keypairLedger, Plan: receiverPlan(keypairLedger.signer.PublicKey())}, scenario.ErrInvalidReceiver},
		{"malformed receiver", scenario.Config{Logger: log, Client: keypairLedger, Plan: receiverPlanString("not-a-key")}, scenario.ErrInvalidReceiver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg
			require.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func receiverPlan(receiver solana.PublicKey) scenario.Plan {
	return receiverPlanString(receiver.String())
}

func receiverPlanString(receiver string) scenario.Plan {
	plan := scenario.DefaultPlan(spltoken.MintModeKeypair)
	plan.Receiver = receiver
	return plan
}

func TestScenario_New_RejectsSignerAsReceiver(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	d, err := scenario.New(scenario.Config{Logger: log, Client: ledger, Plan: receiverPlan(ledger.signer.PublicKey())})
	require.Nil(t, d)
	require.ErrorIs(t, err, scenario.ErrInvalidReceiver)
	require.Empty(t, ledger.calls, "nothing is submitted for a rejected plan")
}

func TestScenario_Driver_RunRepeated_NegativeCount(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))

	runs := 0
	err := d.RunRepeated(context.Background(), -1, time.Millisecond, func(*scenario.Report) { runs++ })
	require.ErrorIs(t, err, scenario.ErrInvalidRepeat)
	require.Zero(t, runs)
	require.Empty(t, ledger.calls)
}

func TestScenario_Driver_RunRepeated(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))

	var reports []*scenario.Report
	err := d.RunRepeated(context.Background(), 3, time.Millisecond, func(r *scenario.Report) {
		reports = append(reports, r)
	})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	require.Len(t, ledger.mints, 3, "every run creates its own mint")
	require.NotEqual(t, reports[0].Mint, reports[1].Mint)
}

func TestScenario_Driver_RunRepeated_SeededUnsupported(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeSeeded)
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeSeeded))

	err := d.RunRepeated(context.Background(), 2, time.Millisecond, nil)
	require.ErrorIs(t, err, scenario.ErrRepeatUnsupported)
	require.Empty(t, ledger.calls)
}

func TestScenario_Driver_RunRepeated_KeepsGoingAfterFailure(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	ledger.burnSkew = 1
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))

	runs := 0
	err := d.RunRepeated(context.Background(), 2, time.Millisecond, func(*scenario.Report) { runs++ })
	require.Error(t, err)
	require.Equal(t, 2, runs)
}

func TestScenario_Report_Render(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger(spltoken.MintModeKeypair)
	d := newDriver(t, ledger, scenario.DefaultPlan(spltoken.MintModeKeypair))
	report, err := d.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	report.Render(&buf)
	out := buf.String()
	for _, name := range []string{
		scenario.StepCreateMint,
		scenario.StepMintTokens,
		scenario.StepTransferTokens,
		scenario.StepBurnTokens,
		scenario.StepAttachMetadata,
		scenario.StepFinalBalance,
	} {
		require.Contains(t, out, name)
	}
	require.Contains(t, out, report.Mint.String())
	require.Contains(t, out, "final holder balance: 4000000000")
}
