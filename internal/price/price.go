// Package price handles price and size values from prediction market APIs
// without losing precision.
package price

import (
	"encoding/json"
	"math"
)

// Price is a fixed-point decimal scaled by Scale.
type Price int64

// Size is a fixed-point quantity scaled by Scale.
type Size int64

var (
	_ json.Unmarshaler = (*Price)(nil)
	_ json.Unmarshaler = (*Size)(nil)
)

const Scale int64 = 1_000_000

func (p *Price) UnmarshalJSON(data []byte) error {
	*p = Price(parseScaled(data))
	return nil
}

func (s *Size) UnmarshalJSON(data []byte) error {
	*s = Size(parseScaled(data))
	return nil
}

// Float64 converts back to a float at the normalization boundary.
func (p Price) Float64() float64 {
	return float64(p) / float64(Scale)
}

func (s Size) Float64() float64 {
	return float64(s) / float64(Scale)
}

// FromFloat rounds a float price onto the fixed-point scale.
func FromFloat(f float64) Price {
	return Price(math.Round(f * float64(Scale)))
}

// SizeFromFloat rounds a float quantity onto the fixed-point scale.
func SizeFromFloat(f float64) Size {
	return Size(math.Round(f * float64(Scale)))
}

// Parse reads a plain decimal string such as "0.55".
func Parse(s string) Price {
	return Price(parseScaled([]byte(s)))
}

func parseScaled(data []byte) int64 {
	if len(data) > 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	// Else we assume that it is a raw number.

	var res int64
	i := 0

	for i < len(data) && data[i] != '.' {
		res = res*10 + int64(data[i]-'0')*Scale
		i++
	}

	if i < len(data) && data[i] == '.' {
		i++
		mult := Scale
		for i < len(data) {
			mult /= 10
			res += int64(data[i]-'0') * mult
			i++
		}
	}

	return res
}
