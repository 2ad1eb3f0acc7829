package models

import "time"

// User is a registered participant. The position is assigned exactly once at
// creation and never changes; invited_by points at the sponsor's Telegram ID
// and is never altered after creation.
type User struct {
	ID         int64      `json:"-"`
	TelegramID int64      `json:"telegram_id" example:"123456789"`
	Username   string     `json:"username" example:"johndoe"`
	RefCode    string     `json:"ref_code" example:"3fT9xK2lq9A"`
	InvitedBy  *int64     `json:"invited_by,omitempty" example:"987654321"`
	Position   int64      `json:"position" example:"42"`
	ProUntil   *time.Time `json:"pro_until,omitempty"`
	CreatedAt  time.Time  `json:"created_at" example:"2024-03-15T14:30:00Z"`
}

// Wallet holds a user's point balance. Mutated only through additive credits.
type Wallet struct {
	UserID int64 `json:"user_id"`
	Stars  int64 `json:"stars"`
}

// UserResponse is the public view of a registered user.
type UserResponse struct {
	TelegramID int64      `json:"telegram_id" example:"123456789"`
	Username   string     `json:"username" example:"johndoe"`
	RefCode    string     `json:"ref_code" example:"3fT9xK2lq9A"`
	Position   int64      `json:"position" example:"42"`
	HasSponsor bool       `json:"has_sponsor"`
	ProUntil   *time.Time `json:"pro_until,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RegistrationResult reports the outcome of an idempotent register call.
type RegistrationResult struct {
	User    *User
	Created bool
}

// RegistrationResponse is the register-or-fetch payload. Created is true only
// on the call that actually inserted the user.
type RegistrationResponse struct {
	UserResponse
	Created bool `json:"created"`
}
