package models

import "time"

// Role constants for user accounts
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleContractor = "contractor"
)

// AdminUserID is the pseudo-user identity shared by all admin accounts in
// the support chat. Every support thread is a conversation between one
// regular user and this identity.
const AdminUserID = "admin"

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Race         string    `json:"race,omitempty"`
	Picture      string    `json:"picture,omitempty"`
	AllyOfID     *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRef is a minimal reference to another user (e.g. the contractor an
// ally belongs to)
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UserSummary is the public shape of a user embedded in comments, chat
// messages and listings
type UserSummary struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Race     string   `json:"race,omitempty"`
	Picture  string   `json:"picture,omitempty"`
	AllyOf   *UserRef `json:"ally_of,omitempty"`
}

// Summary converts a full user record to its public shape. The ally
// reference must be resolved by the caller since it requires a second
// user lookup.
func (u *User) Summary(allyOf *UserRef) UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Race:     u.Race,
		Picture:  u.Picture,
		AllyOf:   allyOf,
	}
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasUnlimitedMessages reports whether the user is exempt from the daily
// chat quota
func (u *User) HasUnlimitedMessages() bool {
	return u.Role == RoleAdmin || u.Role == RoleContractor
}

// ChatIdentity returns the id the user acts as inside the support chat.
// Admin accounts share the admin pseudo-identity; everyone else chats as
// themselves.
func (u *User) ChatIdentity() string {
	if u.Role == RoleAdmin {
		return AdminUserID
	}
	return u.ID
}

// LeaderboardUser is a user together with the total number of likes
// received across their comments and stories
type LeaderboardUser struct {
	UserSummary
	TotalScore int `json:"total_score"`
}

// RegisterRequest is the request body for creating an account
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Race     string `json:"race" binding:"max=64"`
	Picture  string `json:"picture"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest is the request body for changing one's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=128"`
}

// UpdateRoleRequest is the request body for changing a user's role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin contractor"`
}

// UpdateAllyRequest is the request body for assigning or clearing the
// contractor a user is an ally of. A null contractor id clears the link.
type UpdateAllyRequest struct {
	ContractorID *string `json:"contractor_id"`
}
