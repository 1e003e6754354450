// Package amount converts between integer minor units (cents) and the
// decimal strings used at the boundary. Input never carries a sign; the
// caller applies one according to the transaction kind.
package amount

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var InvalidAmountErr = errors.New("invalid amount")

// digits, optionally a separator with one or two fraction digits and
// any number of trailing zeros beyond them
var amountRx = regexp.MustCompile(`^(\d+)(?:[,.](\d{1,2})0*)?$`)

// Parse reads an unsigned decimal amount into minor units. One fraction
// digit counts as tenths of a major unit, as does a bare single digit
// without separator ("5" is 0,50).
func Parse(input string) (int64, error) {
	match := amountRx.FindStringSubmatch(strings.TrimSpace(input))
	if match == nil {
		return 0, InvalidAmountErr
	}
	major, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, InvalidAmountErr
	}
	if match[2] == "" {
		if len(match[1]) == 1 {
			return major * 10, nil
		}
		return major * 100, nil
	}
	minor, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return 0, InvalidAmountErr
	}
	if len(match[2]) == 1 {
		minor *= 10
	}
	return major*100 + minor, nil
}

// Format renders minor units for the tabular account view, e.g.
// "€    12,34". The sign sits on the numeral, never on the currency
// marker, and the numeral is right-aligned to eight runes. Values under
// one major unit go through a zero-padded 0,NN form so that the numeral
// parses back to the same integer.
func Format(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	s := strconv.FormatInt(cents, 10)
	if len(s) < 3 {
		s = "0," + strings.Repeat("0", 2-len(s)) + s
	} else {
		s = s[:len(s)-2] + "," + s[len(s)-2:]
	}
	if negative {
		s = "-" + s
	}
	return "€ " + fmt.Sprintf("%8s", s)
}
