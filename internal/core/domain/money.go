package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cents is an amount in minor currency units.
type Cents int64

// ppmScale is the denominator of a Rate.
const ppmScale = 1_000_000

// Rate is a fraction expressed in parts per million, so 0.0825 is 82500.
type Rate int64

func RateFromFloat(f float64) Rate {
	return Rate(math.Round(f * ppmScale))
}

func (r Rate) Float64() float64 {
	return float64(r) / ppmScale
}

// Apply returns amount*rate rounded half-up to the nearest cent.
func (r Rate) Apply(amount Cents) Cents {
	return Cents(roundHalfUpDiv(int64(amount)*int64(r), ppmScale))
}

// Percent renders the rate as a percentage rounded half-up to one decimal, e.g. "8.3".
func (r Rate) Percent() string {
	tenths := roundHalfUpDiv(int64(r), ppmScale/1000)
	return fmt.Sprintf("%d.%d", tenths/10, tenths%10)
}

func Dollars(whole int64) Cents {
	return Cents(whole * 100)
}

func (c Cents) Float64() float64 {
	return float64(c) / 100
}

// RoundToWhole rounds half-up to whole currency units.
func (c Cents) RoundToWhole() Cents {
	return Cents(roundHalfUpDiv(int64(c), 100) * 100)
}

// String renders two fraction digits without a currency symbol, e.g. "378.88".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cents) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", raw, err)
	}
	*c = Cents(math.Round(f * 100))
	return nil
}

func roundHalfUpDiv(num, den int64) int64 {
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}
