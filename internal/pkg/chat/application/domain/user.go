package chat

// User is a read-only view of a profile owned by the profile directory.
type User struct {
	ID          string  `db:"id"`
	DisplayName string  `db:"display_name"`
	AvatarRef   *string `db:"avatar_ref"`
}
