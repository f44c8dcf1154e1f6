// internal/registrar/phone.go
//
// Phone-number decomposition for registrar contacts.
//
// Context
// -------
// The registrar wants phone numbers split into country code, area code,
// and subscriber number, and it validates the split server-side per
// country.  Most countries follow a simple "2–3 leading digits are the
// area code" convention, but the Netherlands splits differently for
// mobile numbers: everything starting with 6 is mobile and carries the
// one-digit area code "6", while fixed lines use the 2- or 3-digit
// geographic codes.
package registrar

import (
	"fmt"
	"strings"
)

// Phone is the parsed decomposition submitted to the registrar.
type Phone struct {
	CountryCode string // with "+", e.g. "+31"
	AreaCode    string
	Subscriber  string
}

// callingCodes maps ISO country to its international calling code.
// Extend as the customer base grows; parsing refuses unknown countries
// rather than guessing.
var callingCodes = map[string]string{
	"US": "1", "CA": "1",
	"GB": "44", "IE": "353",
	"NL": "31", "BE": "32", "LU": "352",
	"DE": "49", "AT": "43", "CH": "41",
	"FR": "33", "ES": "34", "PT": "351", "IT": "39",
	"DK": "45", "SE": "46", "NO": "47", "FI": "358",
	"PL": "48", "CZ": "420",
}

// nlTwoDigitAreas are the Dutch geographic area codes that are two digits
// long (the big-city codes); every other fixed-line area code is three.
var nlTwoDigitAreas = map[string]struct{}{
	"10": {}, "13": {}, "15": {}, "20": {}, "23": {}, "24": {}, "26": {},
	"30": {}, "33": {}, "35": {}, "36": {}, "38": {}, "40": {}, "43": {},
	"44": {}, "45": {}, "46": {}, "50": {}, "53": {}, "55": {}, "58": {},
	"70": {}, "71": {}, "72": {}, "73": {}, "74": {}, "75": {}, "76": {},
	"77": {}, "78": {}, "79": {},
}

// minSubscriberDigits is the registrar's floor; shorter numbers are
// rejected locally before any API call.
const minSubscriberDigits = 6

// ParsePhone splits raw into registrar form for the given ISO country.
func ParsePhone(raw, country string) (Phone, error) {
	cc, ok := callingCodes[strings.ToUpper(country)]
	if !ok {
		return Phone{}, fmt.Errorf("unsupported phone country %q", country)
	}

	digits := digitsOf(raw)
	if digits == "" {
		return Phone{}, fmt.Errorf("phone number %q contains no digits", raw)
	}

	// Strip international prefixes down to the national number.
	switch {
	case strings.HasPrefix(digits, "00"+cc):
		digits = digits[2+len(cc):]
	case strings.HasPrefix(digits, cc) && strings.HasPrefix(strings.TrimSpace(raw), "+"):
		digits = digits[len(cc):]
	}
	// National trunk prefix.
	digits = strings.TrimPrefix(digits, "0")

	var area, sub string
	if strings.ToUpper(country) == "NL" {
		area, sub = splitDutch(digits)
	} else {
		area, sub = splitDefault(digits)
	}

	if len(sub) < minSubscriberDigits {
		return Phone{}, fmt.Errorf("subscriber number too short: %q", raw)
	}
	return Phone{CountryCode: "+" + cc, AreaCode: area, Subscriber: sub}, nil
}

// splitDutch handles the mobile/fixed distinction: mobile numbers start
// with 6 and take the single-digit area code "6"; fixed lines take their
// 2- or 3-digit geographic code.
func splitDutch(national string) (area, sub string) {
	if national == "" {
		return "", ""
	}
	if national[0] == '6' {
		return "6", national[1:]
	}
	if len(national) >= 2 {
		if _, ok := nlTwoDigitAreas[national[:2]]; ok {
			return national[:2], national[2:]
		}
	}
	if len(national) >= 3 {
		return national[:3], national[3:]
	}
	return national, ""
}

// splitDefault applies the common convention: three leading digits for
// long numbers, two for shorter ones, always preserving the six-digit
// subscriber floor.
func splitDefault(national string) (area, sub string) {
	switch {
	case len(national) >= 9:
		return national[:3], national[3:]
	case len(national) >= 8:
		return national[:2], national[2:]
	case len(national) >= 7:
		return national[:1], national[1:]
	default:
		return "", national
	}
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
