package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "pixivsync"
	// keyringIndex holds the comma-separated list of stored usernames,
	// since the keyring API cannot enumerate keys.
	keyringIndex = "__accounts__"
)

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring-backed credential store. It probes the
// keychain so an unavailable backend is detected up front.
func NewKeyringStore() (*KeyringStore, error) {
	s := &KeyringStore{}
	// A missing index entry is fine; any other error means no keychain
	if _, err := keyring.Get(keyringService, keyringIndex); err != nil && err != keyring.ErrNotFound {
		return nil, fmt.Errorf("keyring unavailable: %w", err)
	}
	return s, nil
}

// Store saves an account to the keychain
func (s *KeyringStore) Store(account *Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := keyring.Set(keyringService, account.Username, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return s.addToIndex(account.Username)
}

// Retrieve gets an account from the keychain
func (s *KeyringStore) Retrieve(username string) (*Account, error) {
	data, err := keyring.Get(keyringService, username)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read from keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

// List returns all accounts recorded in the index
func (s *KeyringStore) List() ([]*Account, error) {
	usernames, err := s.index()
	if err != nil {
		return nil, err
	}

	var accounts []*Account
	for _, username := range usernames {
		account, err := s.Retrieve(username)
		if err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Delete removes an account from the keychain
func (s *KeyringStore) Delete(username string) error {
	if err := keyring.Delete(keyringService, username); err != nil {
		if err == keyring.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return s.removeFromIndex(username)
}

// Exists checks whether an account is stored
func (s *KeyringStore) Exists(username string) bool {
	_, err := keyring.Get(keyringService, username)
	return err == nil
}

func (s *KeyringStore) index() ([]string, error) {
	data, err := keyring.Get(keyringService, keyringIndex)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if data == "" {
		return nil, nil
	}
	return strings.Split(data, ","), nil
}

func (s *KeyringStore) addToIndex(username string) error {
	usernames, err := s.index()
	if err != nil {
		return err
	}
	for _, u := range usernames {
		if u == username {
			return nil
		}
	}
	usernames = append(usernames, username)
	return keyring.Set(keyringService, keyringIndex, strings.Join(usernames, ","))
}

func (s *KeyringStore) removeFromIndex(username string) error {
	usernames, err := s.index()
	if err != nil {
		return err
	}
	kept := usernames[:0]
	for _, u := range usernames {
		if u != username {
			kept = append(kept, u)
		}
	}
	return keyring.Set(keyringService, keyringIndex, strings.Join(kept, ","))
}
