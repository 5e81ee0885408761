package spltoken

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jellydator/ttlcache/v3"
)

var (
	// ErrUnsupportedMintMode is returned for operations the configured program flavour does not expose.
	ErrUnsupportedMintMode = errors.New("operation not supported by mint mode")
)

type Client struct {
	log               *slog.Logger
	rpc               RPCClient
	executor          *executor
	mode              MintMode
	metadataProgramID solana.PublicKey
	commitment        solanarpc.CommitmentType
	decimals          *ttlcache.Cache[solana.PublicKey, uint8]
}

type Option func(*clientOptions)

type clientOptions struct {
	metadataProgramID solana.PublicKey
	decimalsTTL       time.Duration
	executorOpts      []ExecutorOption
	commitment        solanarpc.CommitmentType
}

func WithMetadataProgramID(programID solana.PublicKey) Option {
	return func(o *clientOptions) {
		o.metadataProgramID = programID
	}
}

func WithDecimalsCacheTTL(ttl time.Duration) Option {
	return func(o *clientOptions) {
		o.decimalsTTL = ttl
	}
}

// WithClientCommitment sets the commitment used both to await transactions and to read accounts.
func WithClientCommitment(commitment solanarpc.CommitmentType) Option {
	return func(o *clientOptions) {
		o.commitment = commitment
	}
}

func WithExecutorOptions(opts ...ExecutorOption) Option {
	return func(o *clientOptions) {
		o.executorOpts = append(o.executorOpts, opts...)
	}
}

func New(log *slog.Logger, rpc RPCClient, signer *solana.PrivateKey, programID solana.PublicKey, mode MintMode, opts ...Option) *Client {
	o := &clientOptions{
		metadataProgramID: TokenMetadataProgramID,
		decimalsTTL:       time.Hour,
		commitment:        solanarpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(o)
	}
	execOpts := append([]ExecutorOption{WithCommitment(o.commitment)}, o.executorOpts...)
	return &Client{
		log:               log,
		rpc:               rpc,
		executor:          NewExecutor(log, rpc, signer, programID, execOpts...),
		mode:              mode,
		metadataProgramID: o.metadataProgramID,
		commitment:        o.commitment,
		decimals:          ttlcache.New(ttlcache.WithTTL[solana.PublicKey, uint8](o.decimalsTTL)),
	}
}

func (c *Client) ProgramID() solana.PublicKey {
	if c.executor == nil {
		return solana.PublicKey{}
	}
	return c.executor.programID
}

func (c *Client) Signer() *solana.PrivateKey {
	if c.executor == nil {
		return nil
	}
	return c.executor.signer
}

func (c *Client) Mode() MintMode {
	return c.mode
}

func (c *Client) MetadataProgramID() solana.PublicKey {
	return c.metadataProgramID
}

func (c *Client) payer() (solana.PublicKey, error) {
	signer := c.Signer()
	if signer == nil {
		return solana.PublicKey{}, ErrNoPrivateKey
	}
	return signer.PublicKey(), nil
}

// SeededMintAddress returns the mint PDA of the seeded flavour.
func (c *Client) SeededMintAddress() (solana.PublicKey, error) {
	mint, _, err := DeriveMintPDA(c.ProgramID())
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive mint PDA: %w", err)
	}
	return mint, nil
}

// MetadataAddress returns the metadata account of mint.
func (c *Client) MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := DeriveMetadataPDA(c.metadataProgramID, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata PDA: %w", err)
	}
	return pda, nil
}

type CreateTokenMintParams struct {
	// MintKeypair is the new mint for the keypair flavour; a random key is generated when nil.
	MintKeypair *solana.PrivateKey

	// Metadata is required by the seeded flavour, which creates the metadata account together
	// with the mint.
	Metadata TokenMintMetadata
}

// CreateTokenMint creates and initializes a new mint and returns its address.
func (c *Client) CreateTokenMint(
	ctx context.Context,
	params CreateTokenMintParams,
) (solana.PublicKey, solana.Signature, *solanarpc.GetTransactionResult, error) {
	payer, err := c.payer()
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, err
	}

	config := CreateTokenMintInstructionConfig{
		Mode:              c.mode,
		Payer:             payer,
		MintAuthority:     payer,
		Metadata:          params.Metadata,
		MetadataProgramID: c.metadataProgramID,
	}
	execOpts := &ExecuteTransactionOptions{}

	var mint solana.PublicKey
	switch c.mode {
	case MintModeKeypair:
		mintKey := params.MintKeypair
		if mintKey == nil {
			generated, err := solana.NewRandomPrivateKey()
			if err != nil {
				return solana.PublicKey{}, solana.Signature{}, nil, fmt.Errorf("failed to generate mint keypair: %w", err)
			}
			mintKey = &generated
		}
		mint = mintKey.PublicKey()
		config.Mint = mint
		execOpts.Signers = []solana.PrivateKey{*mintKey}
	case MintModeSeeded:
		mint, err = c.SeededMintAddress()
		if err != nil {
			return solana.PublicKey{}, solana.Signature{}, nil, err
		}
	}

	instruction, err := BuildCreateTokenMintInstruction(c.ProgramID(), config)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, fmt.Errorf("failed to build instruction: %w", err)
	}

	sig, res, err := c.executor.ExecuteTransaction(ctx, instruction, execOpts)
	if err != nil {
		return mint, sig, res, fmt.Errorf("failed to execute instruction: %w", err)
	}
	c.log.Debug("Created token mint", "mint", mint, "mode", c.mode, "sig", sig)
	return mint, sig, res, nil
}

// MintTokens mints amount base units of mint into recipient's associated token account.
func (c *Client) MintTokens(
	ctx context.Context,
	mint solana.PublicKey,
	recipient solana.PublicKey,
	amount *big.Int,
) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	payer, err := c.payer()
	if err != nil {
		return solana.Signature{}, nil, err
	}

	instruction, err := BuildMintTokensInstruction(c.ProgramID(), MintTokensInstructionConfig{
		Mode:          c.mode,
		Payer:         payer,
		Mint:          mint,
		MintAuthority: payer,
		Recipient:     recipient,
		Amount:        amount,
	})
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to build instruction: %w", err)
	}

	sig, res, err := c.executor.ExecuteTransaction(ctx, instruction, nil)
	if err != nil {
		return sig, res, fmt.Errorf("failed to execute instruction: %w", err)
	}
	return sig, res, nil
}

// TransferTokens moves amount base units from the signer's associated token account to the
// receiver's, creating the receiver's account if needed.
func (c *Client) TransferTokens(
	ctx context.Context,
	mint solana.PublicKey,
	receiver solana.PublicKey,
	amount *big.Int,
) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	sender, err := c.payer()
	if err != nil {
		return solana.Signature{}, nil, err
	}

	instruction, err := BuildTransferTokensInstruction(c.ProgramID(), TransferTokensInstructionConfig{
		Sender:   sender,
		Receiver: receiver,
		Mint:     mint,
		Amount:   amount,
	})
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to build instruction: %w", err)
	}

	sig, res, err := c.executor.ExecuteTransaction(ctx, instruction, nil)
	if err != nil {
		return sig, res, fmt.Errorf("failed to execute instruction: %w", err)
	}
	return sig, res, nil
}

// BurnTokens destroys amount base units held in the signer's associated token account.
func (c *Client) BurnTokens(
	ctx context.Context,
	mint solana.PublicKey,
	amount *big.Int,
) (solana.Signature, *solanarpc.GetTransactionResult, error) {
	authority, err := c.payer()
	if err != nil {
		return solana.Signature{}, nil, err
	}

	instruction, err := BuildBurnTokensInstruction(c.ProgramID(), BurnTokensInstructionConfig{
		Authority: authority,
		Mint:      mint,
		Amount:    amount,
	})
	if err != nil {
		return solana.Signature{}, nil, fmt.Errorf("failed to build instruction: %w", err)
	}

	sig, res, err := c.executor.ExecuteTransaction(ctx, instruction, nil)
	if err != nil {
		return sig, res, fmt.Errorf("failed to execute instruction: %w", err)
	}
	return sig, res, nil
}

type TokenMetadataParams struct {
	Name   string
	Symbol string
	URI    string
}

// CreateTokenMetadata attaches Metaplex metadata to a keypair flavour mint and returns the
// metadata account address.
func (c *Client) CreateTokenMetadata(
	ctx context.Context,
	mint solana.PublicKey,
	params TokenMetadataParams,
) (solana.PublicKey, solana.Signature, *solanarpc.GetTransactionResult, error) {
	if c.mode != MintModeKeypair {
		return solana.PublicKey{}, solana.Signature{}, nil, fmt.Errorf("create_token_metadata: %w %q", ErrUnsupportedMintMode, c.mode)
	}
	payer, err := c.payer()
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, err
	}
	metadata, err := c.MetadataAddress(mint)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, err
	}

	instruction, err := BuildCreateTokenMetadataInstruction(c.ProgramID(), CreateTokenMetadataInstructionConfig{
		Payer:             payer,
		Mint:              mint,
		MintAuthority:     payer,
		Name:              params.Name,
		Symbol:            params.Symbol,
		URI:               params.URI,
		MetadataProgramID: c.metadataProgramID,
	})
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, fmt.Errorf("failed to build instruction: %w", err)
	}

	sig, res, err := c.executor.ExecuteTransaction(ctx, instruction, nil)
	if err != nil {
		return metadata, sig, res, fmt.Errorf("failed to execute instruction: %w", err)
	}
	return metadata, sig, res, nil
}

// CreateAssociatedTokenAccount creates owner's associated token account for mint, paid by the signer.
func (c *Client) CreateAssociatedTokenAccount(
	ctx context.Context,
	owner solana.PublicKey,
	mint solana.PublicKey,
) (solana.PublicKey, solana.Signature, *solanarpc.GetTransactionResult, error) {
	payer, err := c.payer()
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, err
	}
	ata, _, err := DeriveAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, fmt.Errorf("failed to derive associated token address: %w", err)
	}

	instruction, err := BuildCreateAssociatedTokenAccountInstruction(CreateAssociatedTokenAccountInstructionConfig{
		Payer: payer,
		Owner: owner,
		Mint:  mint,
	})
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, nil, fmt.Errorf("failed to build instruction: %w", err)
	}

	sig, res, err := c.executor.ExecuteTransaction(ctx, instruction, nil)
	if err != nil {
		return ata, sig, res, fmt.Errorf("failed to execute instruction: %w", err)
	}
	return ata, sig, res, nil
}

func (c *Client) getAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	account, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &solanarpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, solanarpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account data: %w", err)
	}
	if account == nil || account.Value == nil {
		return nil, ErrAccountNotFound
	}
	return account.Value.Data.GetBinary(), nil
}

// AccountExists reports whether an account is present at address.
func (c *Client) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	_, err := c.getAccountData(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetMint fetches and decodes a mint account.
func (c *Client) GetMint(ctx context.Context, mint solana.PublicKey) (*Mint, error) {
	data, err := c.getAccountData(ctx, mint)
	if err != nil {
		return nil, err
	}
	m, err := DeserializeMint(mint, data)
	if err != nil {
		return nil, err
	}
	c.decimals.Set(mint, m.Decimals, ttlcache.DefaultTTL)
	return m, nil
}

// MintDecimals returns the decimals of mint, served from cache after the first lookup.
func (c *Client) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	if item := c.decimals.Get(mint); item != nil {
		return item.Value(), nil
	}
	m, err := c.GetMint(ctx, mint)
	if err != nil {
		return 0, err
	}
	return m.Decimals, nil
}

// GetTokenAccount fetches and decodes a token account.
func (c *Client) GetTokenAccount(ctx context.Context, address solana.PublicKey) (*TokenAccount, error) {
	data, err := c.getAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	return DeserializeTokenAccount(address, data)
}

// GetTokenBalance returns the raw balance of a token account.
func (c *Client) GetTokenBalance(ctx context.Context, address solana.PublicKey) (*big.Int, error) {
	acct, err := c.GetTokenAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return acct.Amount, nil
}

// GetTokenBalanceOrZero is GetTokenBalance with a missing account reading as zero.
func (c *Client) GetTokenBalanceOrZero(ctx context.Context, address solana.PublicKey) (*big.Int, error) {
	balance, err := c.GetTokenBalance(ctx, address)
	if errors.Is(err, ErrAccountNotFound) {
		return new(big.Int), nil
	}
	return balance, err
}

// GetAssociatedTokenAccount fetches owner's associated token account for mint.
func (c *Client) GetAssociatedTokenAccount(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (*TokenAccount, error) {
	ata, _, err := DeriveAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return c.GetTokenAccount(ctx, ata)
}

// GetMetadata fetches and decodes the metadata account of mint.
func (c *Client) GetMetadata(ctx context.Context, mint solana.PublicKey) (*Metadata, error) {
	address, err := c.MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	data, err := c.getAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	return DeserializeMetadata(data)
}
