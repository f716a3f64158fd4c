package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The RecordStore client, the journal
// stores and the lock backends return these (optionally wrapped) so services can
// translate them into domain errors.
//
//   - ErrNotFound: the record or object does not exist upstream
//   - ErrRateLimited: the upstream kept answering with its rate-limit status
//   - ErrLockHeld: a keyed lock could not be acquired before the deadline
//   - ErrUnavailable: a backend is not configured or not reachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrLockHeld    = errors.New("lock held")
	ErrUnavailable = errors.New("unavailable")
)
