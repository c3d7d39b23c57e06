package auth

// TokenStore defines the interface for session token storage
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(serverURL, token string) error
	LoadToken(serverURL string) (string, error)
	DeleteToken(serverURL string) error
}

// defaultTokenStore implements TokenStore using the OS keyring
type defaultTokenStore struct{}

var Default TokenStore = &defaultTokenStore{}

func (d *defaultTokenStore) SaveToken(serverURL, token string) error {
	return SaveToken(serverURL, token)
}

func (d *defaultTokenStore) LoadToken(serverURL string) (string, error) {
	return LoadToken(serverURL)
}

func (d *defaultTokenStore) DeleteToken(serverURL string) error {
	return DeleteToken(serverURL)
}
