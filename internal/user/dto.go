// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UpdateUserTierRequest struct {
	Tier string `json:"tier" validate:"required,oneof=FREE PRO VIP ADMIN"`
}

type UserResponse struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	Role                string    `json:"role"`
	Tier                Tier      `json:"tier"`
	CompletedDealsCount int       `json:"completed_deals_count"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		Role:                u.Role,
		Tier:                u.Tier,
		CompletedDealsCount: u.CompletedDealsCount,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}
