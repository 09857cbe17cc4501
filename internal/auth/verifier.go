package auth

import (
	"github.com/RussPalms/docs-dev-0a/internal/logger"
)

// Verifier checks that every configured essential claim is present.
// Signature and expiry validation happen upstream, when the userinfo
// response or ID token itself is verified; this is only a presence
// check gating authentication.
type Verifier struct {
	Essential []string
}

// Missing returns the essential claims absent from claims, in
// configured order.
func (v Verifier) Missing(claims Claims) []string {
	var missing []string
	for _, name := range v.Essential {
		if !claims.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Verify reports whether authentication may proceed. The exact missing
// claim names are logged, never returned to the caller.
func (v Verifier) Verify(claims Claims) bool {
	missing := v.Missing(claims)
	if len(missing) > 0 {
		logger.Error("missing essential claims", map[string]any{
			"missing": missing,
		})
		return false
	}
	return true
}
