package auth

// Claims is the set of attributes the identity provider asserts about
// the authenticated subject, as decoded from the userinfo response.
// It is immutable once fetched.
type Claims map[string]any

// Has reports whether the claim is present, regardless of its value.
func (c Claims) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// String returns the claim as a string, or "" when the claim is
// absent, null, or not a string.
func (c Claims) String(name string) string {
	v, ok := c[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Identity is the projection of verified claims used to create or
// update a local user. Empty fields mean "no value asserted" and must
// never overwrite existing user data.
type Identity struct {
	Sub       string
	Email     string
	FullName  string
	ShortName string
}

// TokenSet holds the credentials obtained from one authorization-code
// exchange. It lives only for the duration of the authentication
// attempt; a copy of selected tokens may be persisted to the session.
type TokenSet struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
}
