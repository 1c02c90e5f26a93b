package attendance

import (
	"strings"
	"time"
)

const tokenSeparator = "_"

// Token is a decoded boarding token.
type Token struct {
	VehicleID string
	// IssuedAt is the raw time component. It is only interpreted when a
	// freshness window is configured.
	IssuedAt string
}

// ParseToken splits a boarding token of the form "<vehicleId>_<time>" at the
// first separator. Both parts must be non-empty.
func ParseToken(raw string) (Token, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), tokenSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Token{}, ErrInvalidToken
	}
	return Token{VehicleID: parts[0], IssuedAt: parts[1]}, nil
}

// IssueToken builds the token a vehicle displays at time t.
func IssueToken(vehicleID string, t time.Time) string {
	return vehicleID + tokenSeparator + t.UTC().Format(time.RFC3339)
}

// Fresh reports whether the token was issued within maxAge of now. A zero
// maxAge disables the check.
func (t Token) Fresh(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	issued, err := time.Parse(time.RFC3339, t.IssuedAt)
	if err != nil {
		return false
	}
	age := now.Sub(issued)
	// Allow for small clock drift between the vehicle and the server.
	return age >= -time.Minute && age <= maxAge
}
