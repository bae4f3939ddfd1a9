// Package quotes implements the stateless quote price calculator.
package quotes

import (
	"errors"
	"strings"
)

// MinAge is the youngest applicant we will quote.
const MinAge = 18

// ErrUnderage is returned for applicants below MinAge.
var ErrUnderage = errors.New("age must be at least 18")

// Pricing constants, all in cents.
const (
	baseCents      int64 = 50000 // 500.00
	suvSurcharge   int64 = 20000 // +200.00
	sportSurcharge int64 = 40000 // +400.00
)

// Quote is the result of a calculation: the price plus an echo of the
// normalized inputs. Nothing is persisted.
type Quote struct {
	Cents    int64
	Age      int
	CarType  string
	Coverage string
}

// mulRound applies a num/den multiplier with half-up rounding to whole cents.
func mulRound(v, num, den int64) int64 {
	return (v*num + den/2) / den
}

// Calculate prices a quote deterministically:
// base 500.00, +200 for suv, +400 for sports (other categories pass through),
// x1.5 for full coverage, x1.2 for drivers under 25, rounded half-up to cents.
func Calculate(age int, carType, coverage string) (Quote, error) {
	carType = strings.ToLower(strings.TrimSpace(carType))
	coverage = strings.ToLower(strings.TrimSpace(coverage))

	if age < MinAge {
		return Quote{}, ErrUnderage
	}

	price := baseCents
	switch carType {
	case "suv":
		price += suvSurcharge
	case "sports":
		price += sportSurcharge
	}

	if coverage == "full" {
		price = mulRound(price, 3, 2)
	}
	if age < 25 {
		price = mulRound(price, 6, 5)
	}

	return Quote{Cents: price, Age: age, CarType: carType, Coverage: coverage}, nil
}
