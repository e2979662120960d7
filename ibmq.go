// The ibmq package routes quantum circuits onto the connectivity graph of a
// remote IBM Q device, submits them for execution, and decodes the per-shot
// measurement memory that comes back.
//
// The usual flow is
//
//	store := &ibmq.FileCredentialStore{Path: ibmq.DefaultAccountsPath()}
//	backend, err := ibmq.NewIBMQBackend(ctx, store, "ibmqx4")
//	...
//	table, err := backend.Run(ctx, circ, 1024)
//
// where table holds one row per shot and one column per classical bit.
package ibmq

// version is the version of this package.
const version = "0.3.0"

// Version returns the version string of the ibmq package.
func Version() string {
	return version
}

// userAgent is sent with every request to the execution service.
func userAgent() string {
	return "ibmq-go/" + version
}
