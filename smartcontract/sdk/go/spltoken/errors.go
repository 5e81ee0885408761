package spltoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrOwnerMismatch        = errors.New("owner does not match")
	ErrMintMismatch         = errors.New("mint does not match")
	ErrAccountAlreadyExists = errors.New("account already exists")
)

// Custom error codes returned by the SPL token program and surfaced through the Anchor program.
const (
	TokenErrorInsufficientFunds uint32 = 1
	TokenErrorMintMismatch      uint32 = 3
	TokenErrorOwnerMismatch     uint32 = 4
)

// ProgramError is an on-chain rejection of a transaction, either reported by preflight
// simulation or recorded in the confirmed transaction's metadata.
type ProgramError struct {
	Signature   solana.Signature
	Instruction int
	Code        *uint32
	Raw         any
	Logs        []string
	Simulated   bool
}

func (e *ProgramError) Error() string {
	var b strings.Builder
	if e.Simulated {
		b.WriteString("transaction simulation failed")
	} else {
		fmt.Fprintf(&b, "transaction %s failed", e.Signature)
	}
	if e.Instruction >= 0 {
		fmt.Fprintf(&b, ": instruction %d", e.Instruction)
	}
	if e.Code != nil {
		fmt.Fprintf(&b, ": custom program error 0x%x", *e.Code)
	} else if e.Raw != nil {
		fmt.Fprintf(&b, ": %v", e.Raw)
	}
	return b.String()
}

// Is maps the rejection onto the package's sentinel errors.
func (e *ProgramError) Is(target error) bool {
	switch target {
	case ErrInsufficientFunds:
		return e.hasCode(TokenErrorInsufficientFunds) || e.logsContain("insufficient funds")
	case ErrMintMismatch:
		return e.hasCode(TokenErrorMintMismatch) || e.logsContain("account not associated with this mint")
	case ErrOwnerMismatch:
		return e.hasCode(TokenErrorOwnerMismatch) || e.logsContain("owner does not match")
	case ErrAccountAlreadyExists:
		return e.logsContain("already in use")
	}
	return false
}

func (e *ProgramError) hasCode(code uint32) bool {
	return e.Code != nil && *e.Code == code
}

func (e *ProgramError) logsContain(substr string) bool {
	for _, msg := range e.Logs {
		if strings.Contains(strings.ToLower(msg), substr) {
			return true
		}
	}
	return false
}

// newProgramError decodes a transaction error value as returned by the RPC server, e.g.
// {"InstructionError": [0, {"Custom": 1}]}.
func newProgramError(sig solana.Signature, raw any, logs []string) *ProgramError {
	pe := &ProgramError{
		Signature:   sig,
		Instruction: -1,
		Raw:         raw,
		Logs:        logs,
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return pe
	}
	ie, ok := m["InstructionError"].([]any)
	if !ok || len(ie) != 2 {
		return pe
	}
	if idx, ok := toUint32(ie[0]); ok {
		pe.Instruction = int(idx)
	}
	if custom, ok := ie[1].(map[string]any); ok {
		if code, ok := toUint32(custom["Custom"]); ok {
			pe.Code = &code
		}
	}
	return pe
}

// programErrorFromRPC extracts a preflight simulation failure from a send error.
func programErrorFromRPC(err error) (*ProgramError, bool) {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return nil, false
	}
	data, ok := rpcErr.Data.(map[string]any)
	if !ok || data["err"] == nil {
		return nil, false
	}
	var logs []string
	if raw, ok := data["logs"].([]any); ok {
		for _, l := range raw {
			if s, ok := l.(string); ok {
				logs = append(logs, s)
			}
		}
	}
	pe := newProgramError(solana.Signature{}, data["err"], logs)
	pe.Simulated = true
	return pe, true
}

func toUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 32)
		if err != nil {
			return 0, false
		}
		return uint32(u), true
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint32(n), true
	case int:
		return uint32(n), true
	case uint32:
		return n, true
	}
	return 0, false
}
