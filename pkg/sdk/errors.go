package sdk

import "errors"

var (
	// ErrReadOnly is returned by every write method when the client was
	// constructed without a signing key. It is returned before any network
	// call is made.
	ErrReadOnly = errors.New("client is read-only: no signing key configured")

	// ErrAgentNotRegistered is returned by Resolve when no on-chain record
	// exists for the requested agent identifier.
	ErrAgentNotRegistered = errors.New("agent identifier is not registered")

	// ErrAccountNotFound is returned by ChainClient.AccountData when the
	// requested account does not exist at the connected node's commitment
	// level.
	ErrAccountNotFound = errors.New("account not found")

	// ErrScanUnsupported is returned by ChainClient.ScanProgramAccounts
	// when the connected node rejects bulk filtered scans. Callers fall
	// back to per-address fetches.
	ErrScanUnsupported = errors.New("bulk account scan not supported by node")

	// ErrConfigUnavailable wraps failures to load the registry
	// configuration. Resolution-dependent calls fail with it until a later
	// call retries the load successfully.
	ErrConfigUnavailable = errors.New("registry configuration unavailable")

	// ErrNoContentStore is returned by descriptor-publishing paths when the
	// client was constructed without a content store.
	ErrNoContentStore = errors.New("no content store configured")
)
