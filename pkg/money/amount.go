// Package money holds the fixed-width unsigned amount used for every balance,
// principal and fee in the service.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// BasisPoints is the denominator for every rate expressed in bps.
const BasisPoints = 10_000

var (
	ErrOverflow  = errors.New("money: overflow")
	ErrUnderflow = errors.New("money: underflow")
)

// Amount is a 256-bit unsigned quantity. The zero value is 0 and ready to use.
// It is persisted as a decimal string so it survives any SQL dialect.
type Amount struct{ v uint256.Int }

func Zero() Amount { return Amount{} }

func New(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Parse reads a base-10 string ("1236000000000000000").
func Parse(s string) (Amount, error) {
	var a Amount
	s = strings.TrimSpace(s)
	if s == "" {
		return a, nil
	}
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return a, nil
}

// MustParse is Parse for constants in tests and defaults.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Ether returns n·10^18.
func Ether(n uint64) Amount {
	a := New(n)
	return a.MulUint64(1_000_000_000_000_000_000)
}

func (a Amount) String() string { return a.v.Dec() }

func (a Amount) IsZero() bool { return a.v.IsZero() }

func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrOverflow
	}
	return out, nil
}

func (a Amount) Sub(b Amount) (Amount, error) {
	var out Amount
	if _, underflow := out.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrUnderflow
	}
	return out, nil
}

// SaturatingSub returns a-b, or 0 when b > a.
func (a Amount) SaturatingSub(b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return Amount{}
	}
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out
}

func (a Amount) MulUint64(n uint64) Amount {
	var out Amount
	out.v.Mul(&a.v, uint256.NewInt(n))
	return out
}

func (a Amount) DivUint64(n uint64) Amount {
	var out Amount
	if n == 0 {
		return out
	}
	out.v.Div(&a.v, uint256.NewInt(n))
	return out
}

// Quo returns a/b rounded down; 0 when b is 0.
func (a Amount) Quo(b Amount) Amount {
	var out Amount
	if b.IsZero() {
		return out
	}
	out.v.Div(&a.v, &b.v)
	return out
}

// Uint64 returns the low 64 bits.
func (a Amount) Uint64() uint64 { return a.v.Uint64() }

// Bps returns a·bps/10000 rounded down, or ErrOverflow when it exceeds 256 bits.
func (a Amount) Bps(bps uint64) (Amount, error) {
	var out Amount
	if _, overflow := out.v.MulDivOverflow(&a.v, uint256.NewInt(bps), uint256.NewInt(BasisPoints)); overflow {
		return Amount{}, ErrOverflow
	}
	return out, nil
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func (a Amount) MarshalText() ([]byte, error) { return []byte(a.v.Dec()), nil }

func (a *Amount) UnmarshalText(b []byte) error {
	parsed, err := Parse(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) { return a.v.Dec(), nil }

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return ErrUnderflow
		}
		*a = New(uint64(v))
		return nil
	default:
		return fmt.Errorf("money: cannot scan %T", src)
	}
}
