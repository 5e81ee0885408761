package scenario

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/spltoken/smartcontract/sdk/go/spltoken"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrTransferTooLarge = errors.New("transfer amount exceeds minted amount")
	ErrBurnTooLarge     = errors.New("burn amount exceeds balance left after transfer")
	ErrInvalidDecimals  = errors.New("invalid decimals")
	ErrInvalidMetadata  = errors.New("invalid metadata")
	ErrInvalidReceiver  = errors.New("invalid receiver")
)

// Amount is a token amount in base units. It is written as a decimal string or integer in plan
// files so values beyond 2^53 survive the round trip.
type Amount struct {
	*big.Int
}

func NewAmount(v uint64) Amount {
	return Amount{new(big.Int).SetUint64(v)}
}

func ParseAmount(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q is not a base 10 integer", ErrInvalidAmount, s)
	}
	return Amount{v}, nil
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseAmount(node.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Amount) MarshalYAML() (any, error) {
	if a.Int == nil {
		return "0", nil
	}
	return a.String(), nil
}

type MetadataPlan struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
	URI    string `yaml:"uri"`
}

// Plan describes one end to end run: create a mint, mint into the signer's account, transfer
// part of it to a receiver, burn part of the rest and attach metadata.
type Plan struct {
	Mode           spltoken.MintMode `yaml:"mode"`
	Decimals       uint8             `yaml:"decimals"`
	Metadata       MetadataPlan      `yaml:"metadata"`
	MintAmount     Amount            `yaml:"mint_amount"`
	TransferAmount Amount            `yaml:"transfer_amount"`
	BurnAmount     Amount            `yaml:"burn_amount"`

	// Receiver is the owner of the transfer destination. A fresh address is used when empty.
	Receiver string `yaml:"receiver,omitempty"`
}

func DefaultPlan(mode spltoken.MintMode) Plan {
	return Plan{
		Mode:     mode,
		Decimals: spltoken.KeypairMintDecimals,
		Metadata: MetadataPlan{
			Name:   "Dogecoin",
			Symbol: "DOGE",
			URI:    "https://www.jsonkeeper.com/b/5HUH",
		},
		MintAmount:     NewAmount(10_000_000_000),
		TransferAmount: NewAmount(5_000_000_000),
		BurnAmount:     NewAmount(1_000_000_000),
	}
}

// LoadPlan reads a YAML plan. Fields missing from the file keep the default plan's values.
func LoadPlan(path string, mode spltoken.MintMode) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to read plan file: %w", err)
	}
	plan := DefaultPlan(mode)
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Plan{}, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	return plan, nil
}

// FinalBalance is the holder balance expected once every step has run.
func (p Plan) FinalBalance() *big.Int {
	out := new(big.Int).Sub(p.MintAmount.Int, p.TransferAmount.Int)
	return out.Sub(out, p.BurnAmount.Int)
}

func (p Plan) ReceiverPublicKey() (solana.PublicKey, bool, error) {
	if p.Receiver == "" {
		return solana.PublicKey{}, false, nil
	}
	pk, err := solana.PublicKeyFromBase58(p.Receiver)
	if err != nil {
		return solana.PublicKey{}, false, fmt.Errorf("%w: %v", ErrInvalidReceiver, err)
	}
	return pk, true, nil
}

func (p Plan) Validate() error {
	if _, err := spltoken.ParseMintMode(string(p.Mode)); err != nil {
		return err
	}
	if p.Mode == spltoken.MintModeKeypair && p.Decimals != spltoken.KeypairMintDecimals {
		return fmt.Errorf("%w: the keypair flavour always creates mints with %d decimals, got %d", ErrInvalidDecimals, spltoken.KeypairMintDecimals, p.Decimals)
	}
	for name, amount := range map[string]Amount{
		"mint":     p.MintAmount,
		"transfer": p.TransferAmount,
		"burn":     p.BurnAmount,
	} {
		if amount.Int == nil || amount.Sign() <= 0 {
			return fmt.Errorf("%w: %s amount must be positive", ErrInvalidAmount, name)
		}
		if !amount.IsUint64() {
			return fmt.Errorf("%w: %s amount %s exceeds u64 range", ErrInvalidAmount, name, amount)
		}
	}
	if p.TransferAmount.Cmp(p.MintAmount.Int) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrTransferTooLarge, p.TransferAmount, p.MintAmount)
	}
	remaining := new(big.Int).Sub(p.MintAmount.Int, p.TransferAmount.Int)
	if p.BurnAmount.Cmp(remaining) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrBurnTooLarge, p.BurnAmount, remaining)
	}
	if p.Metadata.Name == "" || p.Metadata.Symbol == "" {
		return fmt.Errorf("%w: name and symbol are required", ErrInvalidMetadata)
	}
	if len(p.Metadata.Name) > spltoken.MaxNameLength {
		return fmt.Errorf("%w: name length %d exceeds max %d", ErrInvalidMetadata, len(p.Metadata.Name), spltoken.MaxNameLength)
	}
	if len(p.Metadata.Symbol) > spltoken.MaxSymbolLength {
		return fmt.Errorf("%w: symbol length %d exceeds max %d", ErrInvalidMetadata, len(p.Metadata.Symbol), spltoken.MaxSymbolLength)
	}
	if len(p.Metadata.URI) > spltoken.MaxURILength {
		return fmt.Errorf("%w: uri length %d exceeds max %d", ErrInvalidMetadata, len(p.Metadata.URI), spltoken.MaxURILength)
	}
	if _, _, err := p.ReceiverPublicKey(); err != nil {
		return err
	}
	return nil
}
