// This file presents the Provider, which holds the logged-in accounts.

package ibmq

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// A Provider holds one connection per logged-in account.  It replaces any
// notion of process-wide login state: callers pass a Provider to whatever
// needs to reach the execution service.
type Provider struct {
	conns []*Connection
	log   *zap.Logger
}

// Login establishes connections for each of the given accounts.  It returns
// ErrNoCredentials if the list is empty.
func Login(accounts []Account, opts ...ConnectionOption) (*Provider, error) {
	if len(accounts) == 0 {
		return nil, ErrNoCredentials
	}
	p := &Provider{
		conns: make([]*Connection, 0, len(accounts)),
		log:   zap.NewNop(),
	}
	for _, acct := range accounts {
		conn, err := RemoteConnection(acct, opts...)
		if err != nil {
			return nil, err
		}
		p.conns = append(p.conns, conn)
		p.log = conn.log
	}
	return p, nil
}

// LoadAccounts logs in with every account in a CredentialStore.
func LoadAccounts(store CredentialStore, opts ...ConnectionOption) (*Provider, error) {
	accounts, err := store.StoredAccounts()
	if err != nil {
		return nil, err
	}
	return Login(accounts, opts...)
}

// Connections returns the provider's connections, one per account.
func (p *Provider) Connections() []*Connection {
	return append([]*Connection(nil), p.conns...)
}

// Devices returns the names of the devices visible to any account.  Devices
// reachable through more than one account are listed once.
func (p *Provider) Devices(ctx context.Context) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	for _, c := range p.conns {
		ns, err := c.Devices(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range ns {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	return names, nil
}

// GetDevice returns the named device from the first account that can see it.
func (p *Provider) GetDevice(ctx context.Context, name string) (*Device, error) {
	for _, c := range p.conns {
		dev, err := c.GetDevice(ctx, name)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			p.log.Debug("device not visible to account",
				zap.String("device", name),
				zap.String("account", c.Account.Name))
			continue
		}
		if err != nil {
			return nil, err
		}
		return dev, nil
	}
	return nil, errors.Wrapf(ErrDeviceNotFound, "%q", name)
}
