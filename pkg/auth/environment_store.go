package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvConsumerKey    = "TWCOLLECTOR_CONSUMER_KEY"
	EnvConsumerSecret = "TWCOLLECTOR_CONSUMER_SECRET"
	EnvAccessToken    = "TWCOLLECTOR_ACCESS_TOKEN"
	EnvAccessSecret   = "TWCOLLECTOR_ACCESS_SECRET"
)

// EnvironmentStore is a read-only store over the TWCOLLECTOR_* variables.
// It holds at most one profile, returned under whatever name is asked for.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds a profile from the environment when all four variables are set
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	if !e.Exists(name) {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = DefaultProfile
	}

	return &Account{
		Name:           name,
		ConsumerKey:    os.Getenv(EnvConsumerKey),
		ConsumerSecret: os.Getenv(EnvConsumerSecret),
		AccessToken:    os.Getenv(EnvAccessToken),
		AccessSecret:   os.Getenv(EnvAccessSecret),
		LastModified:   time.Time{},
	}, nil
}

// List returns the environment profile if one is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if all four variables are set
func (e *EnvironmentStore) Exists(name string) bool {
	for _, key := range []string{EnvConsumerKey, EnvConsumerSecret, EnvAccessToken, EnvAccessSecret} {
		if os.Getenv(key) == "" {
			return false
		}
	}
	return true
}
