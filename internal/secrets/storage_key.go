package secrets

import (
	"errors"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"

	"careers-engine/internal/config"
)

const (
	// “Service” groups this app's secrets in the OS keychain.
	KeyringService = "careers-engine"
)

// GetStorageKey returns the object-store service key from the keychain.
// The env var, when set, takes precedence and is handled by the caller.
func GetStorageKey(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		key, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(key) != "" {
			return key, nil
		}
	}
	return "", errors.New("storage service key not found (set it in keychain or via env)")
}

func SetStorageKey(keyringAccount string, key string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("service key is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, key)
}

func DeleteStorageKey(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// StorageKeyringAccount derives the keychain account from the storage URL so
// keys for different projects never collide.
func StorageKeyringAccount(cfg config.Config) string {
	host := cfg.Storage.URL
	if u, err := url.Parse(cfg.Storage.URL); err == nil && u.Host != "" {
		host = u.Host
	}
	return "careers:storage:" + host
}

// ResolveStorageKey is the lookup order every storage call goes through:
// explicit config/env first, then the OS keychain.
func ResolveStorageKey(cfg config.Config) string {
	if k := strings.TrimSpace(cfg.Storage.ServiceKey); k != "" {
		return k
	}
	if k, err := GetStorageKey(StorageKeyringAccount(cfg)); err == nil {
		return k
	}
	return ""
}
