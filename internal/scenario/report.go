package scenario

import (
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
	"github.com/olekukonko/tablewriter"
)

type StepStatus string

const (
	StepStatusOK      StepStatus = "ok"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

type StepResult struct {
	Name        string
	Instruction string
	Signature   solana.Signature
	Expected    string

	// SetupInstruction and SetupSignature record a transaction the step sent before its own,
	// such as creating the receiver's token account.
	SetupInstruction string
	SetupSignature   solana.Signature

	Observed    string
	Duration    time.Duration
	Status      StepStatus
	Err         error
}

type Report struct {
	Mode     spltoken.MintMode
	Mint     solana.PublicKey
	Holder   solana.PublicKey
	Receiver solana.PublicKey
	Metadata solana.PublicKey

	Steps        []StepResult
	FinalBalance *big.Int
	Duration     time.Duration
}

func (r *Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StepStatusFailed {
			return true
		}
	}
	return false
}

func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// Render writes the report as a table followed by a summary of the addresses involved.
func (r *Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetRowLine(true)
	table.SetHeader([]string{"Step", "Status", "Signature", "Expected", "Observed", "Duration"})

	for _, s := range r.Steps {
		sig := ""
		if !s.Signature.IsZero() {
			sig = s.Signature.String()
		}
		observed := s.Observed
		if s.Err != nil && observed == "" {
			observed = s.Err.Error()
		}
		table.Append([]string{
			s.Name,
			string(s.Status),
			sig,
			s.Expected,
			observed,
			s.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()

	for _, s := range r.Steps {
		if !s.SetupSignature.IsZero() {
			fmt.Fprintf(w, "setup %s: %s %s\n", s.Name, s.SetupInstruction, s.SetupSignature)
		}
	}
	fmt.Fprintf(w, "mode:     %s\n", r.Mode)
	fmt.Fprintf(w, "mint:     %s\n", r.Mint)
	fmt.Fprintf(w, "holder:   %s\n", r.Holder)
	fmt.Fprintf(w, "receiver: %s\n", r.Receiver)
	if !r.Metadata.IsZero() {
		fmt.Fprintf(w, "metadata: %s\n", r.Metadata)
	}
	if r.FinalBalance != nil {
		fmt.Fprintf(w, "final holder balance: %s\n", r.FinalBalance)
	}
	fmt.Fprintf(w, "total: %s\n", r.Duration.Round(time.Millisecond))
}
