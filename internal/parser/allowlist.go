package parser

import "slices"

// AllowedSources are the banking and e-wallet apps whose notifications are
// announced. Matching is exact and case-sensitive.
var AllowedSources = []string{
	"mobile.acb.com.vn",
	"com.VCB",
	"com.mservice.momotransfer",
	"com.mbmobile",
	"com.vnpay.Agribank3g",
}

// IsAllowed reports whether notifications from source should be parsed.
func IsAllowed(source string) bool {
	return slices.Contains(AllowedSources, source)
}
