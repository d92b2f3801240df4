package domain

import (
	"fmt"
	"time"
)

// Role is the privilege level encoded into an RTC credential.
type Role int

const (
	RolePublisher  Role = 1
	RoleSubscriber Role = 2
)

func (r Role) Valid() bool {
	return r == RolePublisher || r == RoleSubscriber
}

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Credential is an issued channel access token and the metadata it was built from.
type Credential struct {
	Token     string
	AppID     string
	Channel   string
	SubjectID string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Lifetime is the fixed validity window of the credential.
func (c *Credential) Lifetime() time.Duration {
	return c.ExpiresAt.Sub(c.IssuedAt)
}

// IssueRequest carries the raw parameters of a credential request.
// A zero Role means the caller did not ask for one.
type IssueRequest struct {
	CallerID      UserID
	RequireCaller bool
	Channel       string
	SubjectID     string
	Role          Role
}
