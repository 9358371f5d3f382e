package store

// Credentials is the stored auth-provider session for the signed-in user.
type Credentials struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // unix ms, 0 if unknown
	UpdatedAt    int64
}

// Checkpoint is a key/value entry in sync_state.
type Checkpoint struct {
	Key       string
	Value     string
	UpdatedAt int64
}
