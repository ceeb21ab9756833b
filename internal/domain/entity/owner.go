package entity

import (
	"strings"

	"github.com/google/uuid"
)

// OwnerKey identifies who owns a draft: "user:<uuid>" for an authenticated
// user or "guest:<token>" for an anonymous session.
type OwnerKey string

const (
	ownerUserPrefix  = "user:"
	ownerGuestPrefix = "guest:"
)

func UserOwner(id uuid.UUID) OwnerKey {
	return OwnerKey(ownerUserPrefix + id.String())
}

func GuestOwner(token string) OwnerKey {
	return OwnerKey(ownerGuestPrefix + token)
}

// NewGuestToken issues a fresh anonymous session token
func NewGuestToken() string {
	return uuid.NewString()
}

func (k OwnerKey) IsGuest() bool {
	return strings.HasPrefix(string(k), ownerGuestPrefix) && len(k) > len(ownerGuestPrefix)
}

// UserID returns the user id for an authenticated owner.
func (k OwnerKey) UserID() (uuid.UUID, bool) {
	if !strings.HasPrefix(string(k), ownerUserPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(string(k), ownerUserPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (k OwnerKey) Valid() bool {
	if k.IsGuest() {
		return true
	}
	_, ok := k.UserID()
	return ok
}

func (k OwnerKey) String() string {
	return string(k)
}
