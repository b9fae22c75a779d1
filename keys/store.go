package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/poe/chain"
)

// KeyStore is a local-first filesystem keystore for account seeds.
//
// Features:
// - Supports Ed25519 seeds only
// - Stores seeds on the local filesystem (0600 key files)
// - Derives deterministic role subkeys from a root seed
type KeyStore struct {
	Directory string
}

// KeyEntry is one named key and its derived roles, as reported by ListKeys.
type KeyEntry struct {
	Name  string
	Roles []string
}

// DefaultDirectory returns the default keystore location.
func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "poe", "keys"), nil
}

// Open returns a keystore rooted at directory, or the default location when
// directory is empty.
func Open(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.key")
}

func (ks *KeyStore) roleKeyPath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

// CheckKeyName validates a key name for use as a directory component.
func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	return nil
}

// CheckRole validates a role name.
func CheckRole(role string) error {
	if role == "" {
		return errors.New("role cannot be empty")
	}
	for _, char := range role {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in role", char)
	}
	return nil
}

// ParseSeedHex parses a 32-byte Ed25519 seed from hex, with or without an 0x
// prefix.
func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) saveSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// InitRootKey stores seed under name and returns the resulting account.
func (ks *KeyStore) InitRootKey(name string, seed []byte, overwrite bool) (chain.AccountID, string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	path := ks.rootKeyPath(name)
	if err := ks.saveSeed(path, seed, overwrite); err != nil {
		return "", "", err
	}
	return AccountFromSeed(seed), path, nil
}

// DeriveRoleKey derives and stores a role subkey from the named root key.
func (ks *KeyStore) DeriveRoleKey(from, role string, overwrite bool) (chain.AccountID, string, error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.loadSeed(ks.rootKeyPath(from))
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	path := ks.roleKeyPath(from, role)
	if err := ks.saveSeed(path, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	return AccountFromSeed(roleSeed), path, nil
}

// ExportAccount returns the account identity of a stored key without
// exposing the seed.
func (ks *KeyStore) ExportAccount(name, role string) (chain.AccountID, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	var seed []byte
	var err error
	if role == "" {
		seed, err = ks.loadSeed(ks.rootKeyPath(name))
	} else {
		if err := CheckRole(role); err != nil {
			return "", err
		}
		seed, err = ks.loadSeed(ks.roleKeyPath(name, role))
	}
	if err != nil {
		return "", err
	}
	return AccountFromSeed(seed), nil
}

// LoadSeed resolves a signing seed from, in priority order: an explicit hex
// seed, a key file path, or a stored key name (optionally with a role).
func (ks *KeyStore) LoadSeed(seedHex, signerName, signerRole, keyFile string) ([]byte, error) {
	if seedHex != "" {
		return ParseSeedHex(seedHex)
	}
	if keyFile != "" {
		return ks.loadSeed(keyFile)
	}
	if signerName != "" {
		if err := CheckKeyName(signerName); err != nil {
			return nil, err
		}
		if signerRole == "" {
			return ks.loadSeed(ks.rootKeyPath(signerName))
		}
		if err := CheckRole(signerRole); err != nil {
			return nil, err
		}
		return ks.loadSeed(ks.roleKeyPath(signerName, signerRole))
	}
	return nil, errors.New("no signer provided")
}

// ListKeys returns the stored keys and their derived roles, sorted by name.
func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []KeyEntry
	for _, name := range names {
		rolesDir := filepath.Join(ks.Directory, name, "roles")
		roleEntries, rerr := os.ReadDir(rolesDir)
		var roles []string
		if rerr == nil {
			for _, roleEntry := range roleEntries {
				if roleEntry.IsDir() {
					continue
				}
				if strings.HasSuffix(roleEntry.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(roleEntry.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Name: name, Roles: roles})
	}
	return result, nil
}
