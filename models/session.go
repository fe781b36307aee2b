package models

import (
	"strconv"
	"strings"
)

// SessionKind is the tag of the Session union.
type SessionKind int

const (
	// SessionInitializing means authentication has not finished resolving.
	SessionInitializing SessionKind = iota
	SessionAnonymous
	SessionAuthenticated
)

func (k SessionKind) String() string {
	switch k {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "initializing"
	}
}

// Role is the marketplace role of an authenticated user.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// ParseRole normalizes a role string; unknown roles are treated as buyers.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSeller:
		return RoleSeller
	default:
		return RoleBuyer
	}
}

// Session is the resolved identity of one request.
//
// UserID, Role and Token are only set for SessionAuthenticated; CartID only
// for SessionAnonymous. Use the constructors rather than composite literals.
type Session struct {
	Kind     SessionKind
	DeviceID string
	UserID   int64
	Role     Role
	Token    string
	CartID   *int64
}

func Initializing(deviceID string) Session {
	return Session{Kind: SessionInitializing, DeviceID: deviceID}
}

func Anonymous(deviceID string, cartID *int64) Session {
	s := Session{Kind: SessionAnonymous, DeviceID: deviceID}
	if cartID != nil {
		id := *cartID
		s.CartID = &id
	}
	return s
}

func Authenticated(deviceID string, userID int64, role Role, token string) Session {
	return Session{
		Kind:     SessionAuthenticated,
		DeviceID: deviceID,
		UserID:   userID,
		Role:     role,
		Token:    token,
	}
}

func (s Session) IsAuthenticated() bool { return s.Kind == SessionAuthenticated }
func (s Session) IsAnonymous() bool     { return s.Kind == SessionAnonymous }
func (s Session) IsInitializing() bool  { return s.Kind == SessionInitializing }

// WithCartID returns a copy of an anonymous session addressing cartID.
func (s Session) WithCartID(cartID int64) Session {
	if s.Kind != SessionAnonymous {
		return s
	}
	s.CartID = &cartID
	return s
}

// CartKey identifies the cart view this session addresses, for caching.
func (s Session) CartKey() string {
	switch s.Kind {
	case SessionAuthenticated:
		return UserCartKey(s.UserID)
	case SessionAnonymous:
		if s.CartID == nil {
			return "anon:new"
		}
		return AnonCartKey(*s.CartID)
	default:
		return "initializing"
	}
}

func UserCartKey(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) }

func AnonCartKey(cartID int64) string { return "anon:" + strconv.FormatInt(cartID, 10) }
