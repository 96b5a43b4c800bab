package repository

// CredentialStore is the durable local session storage the sync core reads
// at startup. The core itself never writes the session; only login tooling
// does.
type CredentialStore interface {
	Session() (token string, userID string, err error)
	Save(token, userID string) error
	Close() error
}
