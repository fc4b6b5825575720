package engine

import "errors"

var (
	// ErrConnectivity means the server was unreachable before or during the
	// cycle; nothing was partially applied remotely.
	ErrConnectivity = errors.New("server unreachable")

	// ErrAuth means the credential was rejected; the caller should
	// re-authenticate rather than retry.
	ErrAuth = errors.New("credential rejected")

	// ErrServer means the server answered with a 5xx or a malformed payload.
	ErrServer = errors.New("server error")

	// ErrSyncInProgress means another cycle holds the single sync slot.
	ErrSyncInProgress = errors.New("sync already in progress")
)
