package secrets

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

type memKeyring struct {
	keyring.Keyring
	items map[string]keyring.Item
}

func newMemKeyring() *memKeyring {
	return &memKeyring{items: map[string]keyring.Item{}}
}

func (m *memKeyring) Set(item keyring.Item) error {
	m.items[item.Key] = item
	return nil
}

func (m *memKeyring) Get(key string) (keyring.Item, error) {
	item, ok := m.items[key]
	if !ok {
		return keyring.Item{}, keyring.ErrKeyNotFound
	}
	return item, nil
}

func withMemKeyring(t *testing.T) *memKeyring {
	t.Helper()
	mem := newMemKeyring()
	orig := openKeyringFunc
	openKeyringFunc = func() (keyring.Keyring, error) { return mem, nil }
	t.Cleanup(func() { openKeyringFunc = orig })
	return mem
}

func TestSetGetPassword(t *testing.T) {
	withMemKeyring(t)

	if err := SetPassword("Svc@Example.com", "app-key"); err != nil {
		t.Fatalf("set password: %v", err)
	}

	got, err := GetPassword("svc@example.com")
	if err != nil {
		t.Fatalf("get password: %v", err)
	}
	if got != "app-key" {
		t.Fatalf("unexpected password: %q", got)
	}
}

func TestGetPasswordNotFound(t *testing.T) {
	withMemKeyring(t)

	_, err := GetPassword("missing@example.com")
	if !errors.Is(err, ErrSecretNotFound) {
		t.Fatalf("expected ErrSecretNotFound, got %v", err)
	}
}

func TestSetPasswordValidation(t *testing.T) {
	withMemKeyring(t)

	if err := SetPassword("", "x"); err == nil {
		t.Fatalf("expected error for empty username")
	}
	if err := SetPassword("svc@example.com", ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
