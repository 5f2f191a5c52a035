package meridian

import (
	"fmt"
	"strings"
)

const addressHexLen = 64 // 32 bytes

// Address is a normalized on-chain address: "0x" followed by 64 lowercase
// hex digits. Construct one with ParseAddress; the zero value is not a
// valid address.
type Address string

// ParseAddress validates and normalizes an address string. Shorter inputs
// are left-padded to the full 32-byte width, so "0x2" and "0x02" parse to
// the same Address.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(trimmed, "0x") {
		return "", fmt.Errorf("address %q missing 0x prefix", s)
	}
	digits := trimmed[2:]
	if len(digits) == 0 || len(digits) > addressHexLen {
		return "", fmt.Errorf("address %q has invalid length", s)
	}
	for _, r := range digits {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("address %q contains non-hex character %q", s, r)
		}
	}
	return Address("0x" + strings.Repeat("0", addressHexLen-len(digits)) + digits), nil
}

// MustAddress is ParseAddress for known-good constants; it panics on
// invalid input.
func MustAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string { return string(a) }

// Short returns the abbreviated display form, e.g. "0x5ca1…ab1e".
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// Valid reports whether a is a normalized address.
func (a Address) Valid() bool {
	parsed, err := ParseAddress(string(a))
	return err == nil && parsed == a
}
