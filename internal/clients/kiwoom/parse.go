package kiwoom

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// kst is fixed at UTC+9; Korea has no daylight saving
var kst = time.FixedZone("KST", 9*60*60)

// parseAmount reads a Kiwoom number such as "000000012345", "-00000001234" or "+71000"
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// parsePrice is parseAmount without the direction sign Kiwoom puts on quotes
func parsePrice(s string) (decimal.Decimal, error) {
	d, err := parseAmount(s)
	return d.Abs(), err
}

func parseQuantity(s string) (int64, error) {
	d, err := parseAmount(s)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}

// normalizeSymbol strips the market prefix: "A005930" -> "005930"
func normalizeSymbol(code string) string {
	code = strings.TrimSpace(code)
	if len(code) == 7 && (code[0] == 'A' || code[0] == 'J' || code[0] == 'Q') {
		return code[1:]
	}
	return code
}

// parseExpiry reads expires_dt (yyyyMMddHHmmss in KST)
func parseExpiry(s string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102150405", strings.TrimSpace(s), kst)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expires_dt %q: %w", s, err)
	}
	return t, nil
}
