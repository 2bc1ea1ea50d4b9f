package validation

import (
	"regexp"

	"github.com/diboas/diboas-go/internal/model"
)

// Address formats per chain family. These deliberately validate shape,
// not checksum: a well-formed address that fails on-chain is surfaced by
// the executor, not the form.
var (
	usernamePattern = regexp.MustCompile(`^@[a-zA-Z0-9_]{3,20}$`)

	btcAddressPattern = regexp.MustCompile(`^(bc1[a-z0-9]{25,62}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})$`)
	ethAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	solAddressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	suiAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

// ValidUsername reports whether s is a well-formed diBoaS username
// (leading @, then 3-20 word characters).
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidAddress reports whether s is a well-formed wallet address for the
// given chain. Unknown chains validate nothing and return false.
func ValidAddress(chain model.Chain, s string) bool {
	switch chain {
	case model.ChainBTC:
		return btcAddressPattern.MatchString(s)
	case model.ChainETH:
		return ethAddressPattern.MatchString(s)
	case model.ChainSOL:
		return solAddressPattern.MatchString(s)
	case model.ChainSUI:
		return suiAddressPattern.MatchString(s)
	default:
		return false
	}
}
