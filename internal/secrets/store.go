// Package secrets stores IMAP app passwords for single-account runs in the
// system keyring, with an encrypted file backend as fallback.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"mailharvest/internal/config"
)

const keyringPasswordEnv = "MAILHARVEST_KEYRING_PASSWORD" //nolint:gosec // env var name, not a credential

var (
	ErrSecretNotFound  = errors.New("secret not found")
	errMissingUsername = errors.New("missing username")
	errMissingPassword = errors.New("missing password")
	errNoTTY           = errors.New("no TTY available for keyring file backend password prompt")

	openKeyringFunc = openKeyring
)

func fileKeyringPasswordFunc() keyring.PromptFunc {
	if password, ok := os.LookupEnv(keyringPasswordEnv); ok {
		return keyring.FixedStringPrompt(password)
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return keyring.TerminalPrompt
	}
	return func(_ string) (string, error) {
		return "", fmt.Errorf("%w; set %s", errNoTTY, keyringPasswordEnv)
	}
}

func openKeyring() (keyring.Keyring, error) {
	keyringDir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, fmt.Errorf("ensure keyring dir: %w", err)
	}

	var backends []keyring.BackendType
	// On headless Linux, D-Bus SecretService can hang indefinitely if
	// gnome-keyring is installed but not running; force the file backend.
	if runtime.GOOS == "linux" && os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		backends = []keyring.BackendType{keyring.FileBackend}
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:              config.AppName,
		KeychainTrustApplication: false,
		AllowedBackends:          backends,
		FileDir:                  keyringDir,
		FilePasswordFunc:         fileKeyringPasswordFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	return ring, nil
}

func SetPassword(username, password string) error {
	user := normalize(username)
	if user == "" {
		return errMissingUsername
	}
	if password == "" {
		return errMissingPassword
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return err
	}

	item := keyring.Item{
		Key:   passwordKey(user),
		Data:  []byte(password),
		Label: config.AppName,
	}
	if err := ring.Set(item); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	return nil
}

func GetPassword(username string) (string, error) {
	user := normalize(username)
	if user == "" {
		return "", errMissingUsername
	}

	ring, err := openKeyringFunc()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(passwordKey(user))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("read secret: %w", err)
	}

	return string(item.Data), nil
}

func passwordKey(username string) string {
	return fmt.Sprintf("email_key:%s", username)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
