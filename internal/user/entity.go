// AngelaMos | 2026
// entity.go

package user

import (
	"strings"
	"time"
)

// Tier is the subscription level of a party. Unknown values read as free.
type Tier string

const (
	TierFree  Tier = "FREE"
	TierPro   Tier = "PRO"
	TierVIP   Tier = "VIP"
	TierAdmin Tier = "ADMIN"
)

func ParseTier(s string) Tier {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierPro, TierVIP, TierAdmin:
		return t
	default:
		return TierFree
	}
}

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierVIP, TierAdmin:
		return true
	}
	return false
}

type User struct {
	ID                  string    `db:"id"`
	Email               string    `db:"email"`
	Name                string    `db:"name"`
	Role                string    `db:"role"`
	Tier                Tier      `db:"tier"`
	CompletedDealsCount int       `db:"completed_deals_count"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Tier == TierAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
