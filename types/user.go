package types

import "time"

// User represents an account in the system.
// It contains identity and audit metadata.
type User struct {
	// ID is the unique identifier of the user. It is assigned by the
	// directory on create and is immutable afterwards.
	ID string `json:"id" db:"id"`

	// Username is the display name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, unique across all records.
	Email string `json:"email" db:"email"`

	// PasswordDigest stores the hashed representation of the user's
	// password. This field is never exposed in API responses.
	//
	// Historically-imported records may hold a plaintext value here; such
	// records are upgraded to a digest on their next successful login.
	PasswordDigest string `json:"-" db:"password_digest"`

	// AvatarKey is the object-storage key of the user's avatar, empty if
	// no avatar has been uploaded.
	AvatarKey string `json:"-" db:"avatar_key"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
