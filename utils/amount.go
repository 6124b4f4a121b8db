package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DecimalScale represents the scaling factor for amounts (10^6)
	DecimalScale = 1e6

	// DecimalPlaces is the number of fractional digits a display amount
	// may carry.
	DecimalPlaces = 6
)

// GetDecimalScale returns the decimal scale factor that clients should use
func GetDecimalScale() uint64 {
	return DecimalScale
}

// ToBaseUnits parses a display amount such as "2.5" into base units
// without going through floating point. At most six fractional digits
// are accepted.
func ToBaseUnits(display string) (uint64, error) {
	display = strings.TrimSpace(display)
	if display == "" {
		return 0, fmt.Errorf("empty amount")
	}

	intPart := display
	fracPart := ""
	if idx := strings.IndexByte(display, '.'); idx >= 0 {
		intPart = display[:idx]
		fracPart = display[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > DecimalPlaces {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", display, DecimalPlaces)
	}

	whole, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", display, err)
	}

	frac := uint64(0)
	if fracPart != "" {
		padded := fracPart + strings.Repeat("0", DecimalPlaces-len(fracPart))
		frac, err = strconv.ParseUint(padded, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", display, err)
		}
	}

	if whole > (math.MaxUint64-frac)/DecimalScale {
		return 0, fmt.Errorf("amount %q overflows", display)
	}
	return whole*DecimalScale + frac, nil
}

// FormatBaseUnits renders base units as a display amount, trimming
// trailing fractional zeros.
func FormatBaseUnits(amount uint64) string {
	whole := amount / DecimalScale
	frac := amount % DecimalScale
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	s := fmt.Sprintf("%d.%06d", whole, frac)
	return strings.TrimRight(s, "0")
}
