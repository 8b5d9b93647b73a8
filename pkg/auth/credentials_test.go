package auth

import (
	"errors"
	"testing"
)

func managerWith(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

func TestManagerStoreAndRetrieve(t *testing.T) {
	store := NewMockStore()
	manager := managerWith(store)

	account := &Account{Username: "alice", RefreshToken: "rt-1"}
	if err := manager.Store(account); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store must set the last modified timestamp")
	}

	got, err := manager.Retrieve("alice")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got.RefreshToken != "rt-1" {
		t.Errorf("RefreshToken = %q", got.RefreshToken)
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager := managerWith(NewMockStore())

	if err := manager.Store(&Account{RefreshToken: "rt"}); err == nil {
		t.Error("Expected error for missing username")
	}
	if err := manager.Store(&Account{Username: "alice"}); err == nil {
		t.Error("Expected error for missing refresh token")
	}
}

func TestManagerFallbackOnStoreFailure(t *testing.T) {
	broken := NewMockStore()
	broken.SetStoreError(errors.New("keychain locked"))
	fallback := NewMockStore()
	manager := managerWith(broken, fallback)

	if err := manager.Store(&Account{Username: "alice", RefreshToken: "rt"}); err != nil {
		t.Fatalf("Store must fall through to the next backend: %v", err)
	}
	if !fallback.Exists("alice") {
		t.Error("Fallback store should hold the account")
	}
}

func TestManagerRetrieveFallsThrough(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	second.Store(&Account{Username: "alice", RefreshToken: "rt"})
	manager := managerWith(first, second)

	got, err := manager.Retrieve("alice")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if got.RefreshToken != "rt" {
		t.Errorf("RefreshToken = %q", got.RefreshToken)
	}

	if _, err := manager.Retrieve("unknown"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestManagerRetrieveDefault(t *testing.T) {
	store := NewMockStore()
	manager := managerWith(store)

	if _, err := manager.RetrieveDefault(); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound with no accounts, got %v", err)
	}

	store.Store(&Account{Username: "alice", RefreshToken: "rt-1"})
	got, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("RetrieveDefault failed: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Username = %q", got.Username)
	}

	store.Store(&Account{Username: "bob", RefreshToken: "rt-2"})
	if _, err := manager.RetrieveDefault(); err == nil {
		t.Error("Expected error with multiple accounts")
	}
}

func TestManagerListDeduplicates(t *testing.T) {
	first := NewMockStore()
	first.Store(&Account{Username: "alice", RefreshToken: "rt-new"})
	second := NewMockStore()
	second.Store(&Account{Username: "alice", RefreshToken: "rt-old"})
	second.Store(&Account{Username: "bob", RefreshToken: "rt-b"})
	manager := managerWith(first, second)

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	for _, account := range accounts {
		if account.Username == "alice" && account.RefreshToken != "rt-new" {
			t.Error("Earlier store must win the deduplication")
		}
	}
}

func TestManagerDelete(t *testing.T) {
	first := NewMockStore()
	first.Store(&Account{Username: "alice", RefreshToken: "rt"})
	second := NewMockStore()
	second.Store(&Account{Username: "alice", RefreshToken: "rt"})
	manager := managerWith(first, second)

	if err := manager.Delete("alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if first.Exists("alice") || second.Exists("alice") {
		t.Error("Delete must remove the account from every store")
	}

	if err := manager.Delete("alice"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound on repeat delete, got %v", err)
	}
}
