package auth

import (
	"github.com/google/uuid"
)

// User is the acting user of the session
type User struct {
	ID          uuid.UUID
	DisplayName string
}

// Identity answers who the acting user is. It is used to stamp writes and to
// suppress notifications about one's own actions.
type Identity interface {
	CurrentUser() User
}

// StaticIdentity is an Identity fixed for the lifetime of the process
type StaticIdentity struct {
	User User
}

// CurrentUser returns the fixed user
func (s StaticIdentity) CurrentUser() User {
	return s.User
}

// SessionIdentity resolves the acting user from a session access token
func SessionIdentity(verifier *JWTService, accessToken string) (StaticIdentity, error) {
	user, err := verifier.Verify(accessToken)
	if err != nil {
		return StaticIdentity{}, err
	}
	return StaticIdentity{User: user}, nil
}
