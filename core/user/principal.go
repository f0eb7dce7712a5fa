package user

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// Principal is the authenticated caller of a core operation.
type Principal struct {
	UserID string
	Roles  []string
}

func NewPrincipal(usr User) Principal {
	return Principal{UserID: usr.ID, Roles: usr.Roles}
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p Principal) IsAdmin() bool      { return p.HasRole(RoleAdmin) }
func (p Principal) IsInstructor() bool { return p.HasRole(RoleInstructor) }
func (p Principal) IsStudent() bool    { return p.HasRole(RoleStudent) }

// HashSecret hashes a secret that belongs to owner, e.g. a classroom enrollment password.
// The hash only verifies against the same owner.
func HashSecret(owner User, secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(secretMaterial(owner, secret), bcrypt.DefaultCost)
}

// VerifySecret reports whether secret matches a hash produced by HashSecret for owner.
func VerifySecret(owner User, hash []byte, secret string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, secretMaterial(owner, secret)) == nil
}

// secretMaterial keeps bcrypt input under its 72 bytes limit.
func secretMaterial(owner User, secret string) []byte {
	sum := sha256.Sum256([]byte(owner.ID + ":" + secret))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
