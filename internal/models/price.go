package models

import (
	"math"
	"strconv"
)

// Price is an amount in cents.
type Price int64

const MaxPrice Price = 10000 * 100

func PriceFromFloat(amount float64) Price {
	return Price(math.Round(amount * 100))
}

func (p Price) Float() float64 {
	return float64(p) / 100
}

func (p Price) String() string {
	return strconv.FormatFloat(p.Float(), 'f', 2, 64)
}

// MarshalJSON writes the price as a JSON number with two decimals.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}
