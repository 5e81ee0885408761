package spltoken

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

// ErrOnCurve is returned when a derived address is a valid ed25519 point, i.e. could have a
// private key.
var ErrOnCurve = errors.New("derived address is on the ed25519 curve")

func DeriveMintPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findOffCurveAddress([][]byte{[]byte(MintSeed)}, programID)
}

func DeriveAuthorityPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return findOffCurveAddress([][]byte{[]byte(AuthoritySeed)}, programID)
}

// DeriveMetadataPDA derives the metadata account for a mint under the metadata program.
func DeriveMetadataPDA(metadataProgramID solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte(MetadataSeed),
		metadataProgramID.Bytes(),
		mint.Bytes(),
	}
	return findOffCurveAddress(seeds, metadataProgramID)
}

// DeriveAssociatedTokenAddress derives the canonical token account of owner for mint.
func DeriveAssociatedTokenAddress(owner solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	ata, bump, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	if err := RequireOffCurve(ata); err != nil {
		return solana.PublicKey{}, 0, err
	}
	return ata, bump, nil
}

func findOffCurveAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	pda, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	if err := RequireOffCurve(pda); err != nil {
		return solana.PublicKey{}, 0, err
	}
	return pda, bump, nil
}

// IsOffCurve reports whether pk is not a valid ed25519 point, which holds for every
// program derived address.
func IsOffCurve(pk solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err != nil
}

// RequireOffCurve returns ErrOnCurve unless pk is off the curve.
func RequireOffCurve(pk solana.PublicKey) error {
	if !IsOffCurve(pk) {
		return fmt.Errorf("%w: %s", ErrOnCurve, pk)
	}
	return nil
}
