package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential is the stable participant identity plus the bearer token the
// Match Backend authenticates.
type Credential struct {
	ParticipantID string
	EntityType    string
	Token         string
	// ExpiresAt is zero when the backend did not report an expiry and the
	// token carries none.
	ExpiresAt time.Time
}

// Expired reports whether the credential is past its known expiry. A
// credential without a known expiry never reports expired.
func (c Credential) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// expiryFromToken reads the exp claim from a JWT-shaped token without
// verifying its signature; we only need the expiry hint, the backend
// remains the authority on token validity.
func expiryFromToken(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
