package channel

import (
	"fmt"
	"strings"
)

// SplitRecipient splits "scheme://address" into its two parts.
func SplitRecipient(uri string) (scheme, address string, err error) {
	scheme, address, ok := strings.Cut(uri, "://")
	if !ok {
		return "", "", fmt.Errorf("recipient %q has no scheme", uri)
	}
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	address = strings.TrimSpace(address)
	if scheme == "" {
		return "", "", fmt.Errorf("recipient %q has an empty scheme", uri)
	}
	if address == "" {
		return "", "", fmt.Errorf("recipient %q has an empty address", uri)
	}
	return scheme, address, nil
}

// NormalizeMSISDN returns number in international format, prefixing "+" when
// it is missing. It does not validate the digits.
func NormalizeMSISDN(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "+") {
		return number
	}
	return "+" + number
}
