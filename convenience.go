// This file provides convenience routines that combine several of the
// package's lower-level calls.

package ibmq

import (
	"context"
	"os"

	"github.com/pkg/errors"
)

// NewBackendFromEnv is a convenience function that constructs an IBMQBackend
// from environment variables.  It reads the API token (IBMQ_TOKEN), API URL
// (IBMQ_URL), proxy URL (IBMQ_PROXY), and device name (IBMQ_BACKEND).  When no
// token is set it falls back to the accounts in the default accounts file.
func NewBackendFromEnv(ctx context.Context, opts ...BackendOption) (*IBMQBackend, error) {
	// Query the environment for the connection parameters.
	var store CredentialStore
	if token := os.Getenv("IBMQ_TOKEN"); token != "" {
		store = StaticCredentials{{
			Name:  "env",
			Token: token,
			URL:   os.Getenv("IBMQ_URL"),
			Proxy: os.Getenv("IBMQ_PROXY"),
		}}
	} else {
		store = &FileCredentialStore{Path: DefaultAccountsPath()}
	}

	// Return the specified backend.
	name := os.Getenv("IBMQ_BACKEND")
	if name == "" {
		return nil, errors.New("a device must be named via the IBMQ_BACKEND environment variable")
	}
	return NewIBMQBackend(ctx, store, name, opts...)
}

// RunQASM parses an OpenQASM program and runs it on a backend.
func RunQASM(ctx context.Context, b Backend, src string, shots int) (ShotTable, error) {
	c, err := ParseQASM(src)
	if err != nil {
		return nil, errors.Wrap(err, "parse program")
	}
	return b.Run(ctx, c, shots)
}
