// This file presents the account credentials used to log in to the execution
// service.

package ibmq

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultURL is the API endpoint used by accounts that do not name one.
const DefaultURL = "https://api.quantum-computing.ibm.com/api"

// An Account holds the credentials for one execution-service account.
type Account struct {
	Name    string `yaml:"name"`              // Local name of the account
	Token   string `yaml:"token"`             // API token
	URL     string `yaml:"url,omitempty"`     // API endpoint (DefaultURL if empty)
	Hub     string `yaml:"hub,omitempty"`     // Provider hub
	Group   string `yaml:"group,omitempty"`   // Provider group
	Project string `yaml:"project,omitempty"` // Provider project
	Proxy   string `yaml:"proxy,omitempty"`   // Proxy URL
}

// endpoint returns the account's API URL.
func (a Account) endpoint() string {
	if a.URL == "" {
		return DefaultURL
	}
	return a.URL
}

// A CredentialStore lists the accounts available for logging in.
type CredentialStore interface {
	StoredAccounts() ([]Account, error)
}

// StaticCredentials is a CredentialStore backed by an in-memory list.
type StaticCredentials []Account

// StoredAccounts implements the CredentialStore interface.
func (s StaticCredentials) StoredAccounts() ([]Account, error) {
	return append([]Account(nil), s...), nil
}

// accountsFile is the on-disk layout of a FileCredentialStore.
type accountsFile struct {
	Accounts []Account `yaml:"accounts"`
}

// DefaultAccountsPath returns the location of the accounts file used when no
// other is specified: $HOME/.ibmq/accounts.yaml.
func DefaultAccountsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ibmq", "accounts.yaml")
	}
	return filepath.Join(home, ".ibmq", "accounts.yaml")
}

// A FileCredentialStore keeps accounts in a YAML file.
type FileCredentialStore struct {
	Path string // Location of the accounts file
}

// load reads the accounts file.  A missing file holds no accounts.
func (s *FileCredentialStore) load() (*accountsFile, error) {
	var af accountsFile
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return &af, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read accounts file")
	}
	if err := yaml.Unmarshal(data, &af); err != nil {
		return nil, errors.Wrapf(err, "parse accounts file %s", s.Path)
	}
	return &af, nil
}

// save writes the accounts file, readable only by its owner.
func (s *FileCredentialStore) save(af *accountsFile) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return errors.Wrap(err, "create accounts directory")
	}
	data, err := yaml.Marshal(af)
	if err != nil {
		return errors.Wrap(err, "encode accounts")
	}
	return errors.Wrap(os.WriteFile(s.Path, data, 0o600), "write accounts file")
}

// StoredAccounts implements the CredentialStore interface.
func (s *FileCredentialStore) StoredAccounts() ([]Account, error) {
	af, err := s.load()
	if err != nil {
		return nil, err
	}
	return af.Accounts, nil
}

// StoreAccount adds an account to the file.  An existing account with the same
// name is replaced only if overwrite is set.
func (s *FileCredentialStore) StoreAccount(acct Account, overwrite bool) error {
	if acct.Token == "" {
		return errors.New("account has no token")
	}
	if acct.Name == "" {
		acct.Name = "default"
	}
	af, err := s.load()
	if err != nil {
		return err
	}
	for i, a := range af.Accounts {
		if a.Name != acct.Name {
			continue
		}
		if !overwrite {
			return errors.Errorf("account %q already stored", acct.Name)
		}
		af.Accounts[i] = acct
		return s.save(af)
	}
	af.Accounts = append(af.Accounts, acct)
	return s.save(af)
}

// DeleteAccount removes the named account from the file.
func (s *FileCredentialStore) DeleteAccount(name string) error {
	af, err := s.load()
	if err != nil {
		return err
	}
	for i, a := range af.Accounts {
		if a.Name == name {
			af.Accounts = append(af.Accounts[:i], af.Accounts[i+1:]...)
			return s.save(af)
		}
	}
	return errors.Errorf("account %q not found", name)
}
