package spltoken

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

const (
	MintAccountSize  = 82
	TokenAccountSize = 165

	// MetadataKeyV1 is the account key byte of a Metaplex metadata account.
	MetadataKeyV1 uint8 = 4
)

type Mint struct {
	Address         solana.PublicKey
	MintAuthority   *solana.PublicKey
	FreezeAuthority *solana.PublicKey
	Supply          *big.Int
	Decimals        uint8
	IsInitialized   bool
}

type TokenAccount struct {
	Address  solana.PublicKey
	Mint     solana.PublicKey
	Owner    solana.PublicKey
	Amount   *big.Int
	Delegate *solana.PublicKey
	State    token.AccountState
}

type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

// Metadata is the prefix of a Metaplex metadata account up to the mutability flag. Name, Symbol
// and URI are stored NUL padded on chain and are trimmed on decode.
type Metadata struct {
	Key                  uint8
	UpdateAuthority      solana.PublicKey
	Mint                 solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
}

func (m *Metadata) Serialize(w io.Writer) error {
	enc := bin.NewBorshEncoder(w)
	if err := enc.Encode(m.Key); err != nil {
		return err
	}
	if err := enc.Encode(m.UpdateAuthority); err != nil {
		return err
	}
	if err := enc.Encode(m.Mint); err != nil {
		return err
	}
	if err := enc.Encode(m.Name); err != nil {
		return err
	}
	if err := enc.Encode(m.Symbol); err != nil {
		return err
	}
	if err := enc.Encode(m.URI); err != nil {
		return err
	}
	if err := enc.Encode(m.SellerFeeBasisPoints); err != nil {
		return err
	}
	if err := enc.WriteOption(m.Creators != nil); err != nil {
		return err
	}
	if m.Creators != nil {
		if err := enc.Encode(uint32(len(m.Creators))); err != nil {
			return err
		}
		for _, c := range m.Creators {
			if err := enc.Encode(c.Address); err != nil {
				return err
			}
			if err := enc.Encode(c.Verified); err != nil {
				return err
			}
			if err := enc.Encode(c.Share); err != nil {
				return err
			}
		}
	}
	if err := enc.Encode(m.PrimarySaleHappened); err != nil {
		return err
	}
	if err := enc.Encode(m.IsMutable); err != nil {
		return err
	}
	return nil
}

func (m *Metadata) Deserialize(data []byte) error {
	dec := bin.NewBorshDecoder(data)
	if err := dec.Decode(&m.Key); err != nil {
		return err
	}
	if err := dec.Decode(&m.UpdateAuthority); err != nil {
		return err
	}
	if err := dec.Decode(&m.Mint); err != nil {
		return err
	}
	if err := dec.Decode(&m.Name); err != nil {
		return err
	}
	if err := dec.Decode(&m.Symbol); err != nil {
		return err
	}
	if err := dec.Decode(&m.URI); err != nil {
		return err
	}
	m.Name = trimPadding(m.Name)
	m.Symbol = trimPadding(m.Symbol)
	m.URI = trimPadding(m.URI)
	if err := dec.Decode(&m.SellerFeeBasisPoints); err != nil {
		return err
	}
	hasCreators, err := dec.ReadOption()
	if err != nil {
		return err
	}
	if hasCreators {
		var n uint32
		if err := dec.Decode(&n); err != nil {
			return err
		}
		if n > MaxCreators {
			return fmt.Errorf("creators count %d exceeds max allowed %d", n, MaxCreators)
		}
		m.Creators = make([]Creator, n)
		for i := range m.Creators {
			if err := dec.Decode(&m.Creators[i].Address); err != nil {
				return err
			}
			if err := dec.Decode(&m.Creators[i].Verified); err != nil {
				return err
			}
			if err := dec.Decode(&m.Creators[i].Share); err != nil {
				return err
			}
		}
	}
	if err := dec.Decode(&m.PrimarySaleHappened); err != nil {
		return err
	}
	if err := dec.Decode(&m.IsMutable); err != nil {
		return err
	}
	return nil
}

// MaxCreators is the Metaplex limit on listed creators.
const MaxCreators = 5

func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}
