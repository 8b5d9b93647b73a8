package auth

import (
	"errors"
	"os"
)

// EnvironmentStore implements a read-only CredentialStore backed by
// environment variables, for CI and backward compatibility.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-variable credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported; the environment is read-only
func (s *EnvironmentStore) Store(account *Account) error {
	return errors.New("environment store is read-only")
}

// Retrieve returns the environment account when the username matches
func (s *EnvironmentStore) Retrieve(username string) (*Account, error) {
	account := s.fromEnv()
	if account == nil || account.Username != username {
		return nil, ErrNotFound
	}
	return account, nil
}

// List returns the environment account, if configured
func (s *EnvironmentStore) List() ([]*Account, error) {
	if account := s.fromEnv(); account != nil {
		return []*Account{account}, nil
	}
	return nil, nil
}

// Delete is not supported; the environment is read-only
func (s *EnvironmentStore) Delete(username string) error {
	return errors.New("environment store is read-only")
}

// Exists checks whether the environment account matches the username
func (s *EnvironmentStore) Exists(username string) bool {
	account := s.fromEnv()
	return account != nil && account.Username == username
}

func (s *EnvironmentStore) fromEnv() *Account {
	token := os.Getenv("PIXIVSYNC_REFRESH_TOKEN")
	if token == "" {
		return nil
	}
	username := os.Getenv("PIXIVSYNC_USERNAME")
	if username == "" {
		username = "environment"
	}
	return &Account{
		Username:     username,
		RefreshToken: token,
		UserAgent:    os.Getenv("PIXIVSYNC_USER_AGENT"),
	}
}
