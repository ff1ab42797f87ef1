package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/99designs/keyring"

	ctxerrors "github.com/agenticadvertising/addie-shell/internal/errors"
)

const (
	// ServiceName is the credential-store service identifier for the shell.
	ServiceName = "org.agenticadvertising.addie"
	// SessionKey is the single credential entry holding the JSON session.
	SessionKey = "session"
	// FallbackFileName is the plaintext session file in the user's home
	// directory, used when the OS keyring is unavailable (unsigned builds,
	// containers, CI).
	FallbackFileName = ".addie-session.json"
	// KeyringPasswordEnvVarName sets the file keyring passphrase for
	// non-interactive setups.
	KeyringPasswordEnvVarName = "ADDIE_KEYRING_PASSWORD"
	// DBUSSessionAddressEnvVarName is used to detect Linux headless mode.
	DBUSSessionAddressEnvVarName = "DBUS_SESSION_BUS_ADDRESS"
)

// KeyringProvider defines an interface for keyring operations
type KeyringProvider interface {
	Get(key string) (keyring.Item, error)
	Set(item keyring.Item) error
	Remove(key string) error
}

// osKeyring wraps the actual OS keyring implementation
type osKeyring struct {
	ring keyring.Keyring
}

func keyringFileDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}

	configDir = strings.TrimSpace(configDir)
	if configDir == "" {
		return string(os.PathSeparator) + filepath.Join("addie", "keyring")
	}
	return filepath.Join(configDir, "addie", "keyring")
}

func keyringFilePassword() string {
	if password := strings.TrimSpace(os.Getenv(KeyringPasswordEnvVarName)); password != "" {
		return password
	}
	return ServiceName
}

func shouldForceFileBackend(goos string, dbusAddr string) bool {
	return goos == "linux" && strings.TrimSpace(dbusAddr) == ""
}

// newOSKeyring creates a new OS keyring provider
func newOSKeyring() (KeyringProvider, error) {
	cfg := keyring.Config{
		ServiceName: ServiceName,
		// macOS Keychain settings
		KeychainTrustApplication:       true,
		KeychainSynchronizable:         false,
		KeychainAccessibleWhenUnlocked: true,
		// Encrypted file backend for environments without a GUI keyring
		FileDir:          keyringFileDir(),
		FilePasswordFunc: func(_ string) (string, error) { return keyringFilePassword(), nil },
	}

	if shouldForceFileBackend(runtime.GOOS, os.Getenv(DBUSSessionAddressEnvVarName)) {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &osKeyring{ring: ring}, nil
}

func (k *osKeyring) Get(key string) (keyring.Item, error) {
	return k.ring.Get(key)
}

func (k *osKeyring) Set(item keyring.Item) error {
	return k.ring.Set(item)
}

func (k *osKeyring) Remove(key string) error {
	return k.ring.Remove(key)
}

// defaultProvider is the keyring provider used by the package.
// Can be overridden for testing using SetProviderFunc (in testing.go).
var defaultProvider func() (KeyringProvider, error) = newOSKeyring

// fallbackFilePathFunc locates the plaintext session file.
// It can be overridden for testing using SetFallbackFilePathFunc.
var fallbackFilePathFunc = defaultFallbackFilePath

func defaultFallbackFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, FallbackFileName), nil
}

// Save stores the session as a single credential entry. The OS keyring is
// tried first; when it is unavailable the session is written to the
// fallback file instead. Exactly one live session per device: saving
// replaces any previous entry.
func Save(s *Session) error {
	if s == nil {
		return ctxerrors.NewStoreError("save", fmt.Errorf("session cannot be nil"))
	}
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return ctxerrors.NewStoreError("save", err)
	}

	if provider, err := defaultProvider(); err == nil {
		err = provider.Set(keyring.Item{
			Key:   SessionKey,
			Label: "Addie Session",
			Data:  data,
		})
		if err == nil {
			return nil
		}
		slog.Debug("keyring save failed, using fallback file", "error", err)
	} else {
		slog.Debug("keyring unavailable, using fallback file", "error", err)
	}

	path, err := fallbackFilePathFunc()
	if err != nil {
		return ctxerrors.NewStoreError("save", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ctxerrors.NewStoreError("save", err)
	}
	slog.Debug("session saved to fallback file", "path", path)
	return nil
}

// Load retrieves the stored session. Returns (nil, nil) when no session
// exists in either the keyring or the fallback file.
func Load() (*Session, error) {
	if provider, err := defaultProvider(); err == nil {
		item, err := provider.Get(SessionKey)
		if err == nil && len(item.Data) > 0 {
			var s Session
			if err := json.Unmarshal(item.Data, &s); err != nil {
				return nil, ctxerrors.NewStoreError("load", fmt.Errorf("corrupt keyring entry: %w", err))
			}
			return &s, nil
		}
		if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			slog.Debug("keyring load failed, trying fallback file", "error", err)
		}
	}

	path, err := fallbackFilePathFunc()
	if err != nil {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ctxerrors.NewStoreError("load", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ctxerrors.NewStoreError("load", fmt.Errorf("corrupt session file: %w", err))
	}
	return &s, nil
}

// Delete removes the session from both the keyring and the fallback file.
// Does not return an error if no session exists.
func Delete() error {
	if provider, err := defaultProvider(); err == nil {
		if err := provider.Remove(SessionKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return ctxerrors.NewStoreError("delete", err)
		}
	}

	path, err := fallbackFilePathFunc()
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return ctxerrors.NewStoreError("delete", err)
	}
	return nil
}

// Active reports whether a session is currently stored.
func Active() bool {
	s, err := Load()
	return err == nil && s != nil
}
