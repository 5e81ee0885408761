package config

const (
	// Mainnet constants.
	MainnetSolanaRPC   = "https://api.mainnet-beta.solana.com"
	MainnetSolanaWSURL = "wss://api.mainnet-beta.solana.com"

	// Testnet constants.
	TestnetSolanaRPC   = "https://api.testnet.solana.com"
	TestnetSolanaWSURL = "wss://api.testnet.solana.com"

	// Devnet constants.
	DevnetSolanaRPC   = "https://api.devnet.solana.com"
	DevnetSolanaWSURL = "wss://api.devnet.solana.com"

	// Localnet constants, matching solana-test-validator defaults.
	LocalnetSolanaRPC   = "http://127.0.0.1:8899"
	LocalnetSolanaWSURL = "ws://127.0.0.1:8900"
)

const (
	// KeypairMintProgramID is the token program flavour whose mint is a co-signing keypair.
	KeypairMintProgramID = "A1DwTAisxvTXSAKDFQnvtY1uVXjLgiuw2pYqQF2pk3VH"

	// SeededMintProgramID is the token program flavour whose mint is a program derived address.
	SeededMintProgramID = "DngBV6YuyztBJucqPHTTHtTuk99jDc1yv7y8SQQKA53s"

	TokenMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

// Environment variables that override cluster configuration.
const (
	EnvVarEnv       = "SPLTOKEN_ENV"
	EnvVarRPCURL    = "SOLANA_RPC_URL"
	EnvVarProgramID = "SPLTOKEN_PROGRAM_ID"
	EnvVarKeypair   = "SPLTOKEN_KEYPAIR"
	EnvVarMintMode  = "SPLTOKEN_MODE"

	// EnvVarSecretKey holds a base58 secret key and takes precedence over the keypair file.
	EnvVarSecretKey = "SPLTOKEN_SECRET_KEY"
)

const (
	DefaultEnv        = EnvDevnet
	DefaultMintMode   = "keypair"
	DefaultKeypair    = "~/.config/solana/id.json"
	DefaultDotEnvFile = ".env"
)
