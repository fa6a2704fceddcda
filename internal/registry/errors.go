package registry

import "errors"

// Input validation.
var (
	ErrInvalidInput     = errors.New("registry: invalid input")
	ErrInvalidAdminList = errors.New("registry: invalid admin list")
	ErrInvalidThreshold = errors.New("registry: invalid threshold")
)

// Authorization.
var (
	ErrNotAdmin   = errors.New("registry: caller is not an admin")
	ErrNotOwner   = errors.New("registry: caller is not the owner")
	ErrNotCreator = errors.New("registry: caller is not the request creator")
)

// State consistency.
var (
	ErrDuplicateRequest = errors.New("registry: duplicate request")
	ErrUnknownRequest   = errors.New("registry: unknown request")
	ErrAlreadyApproved  = errors.New("registry: admin already voted")
	// ErrAlreadyFinalized is returned only by Reject, for a request that already
	// reached the threshold. Approve tolerates late votes and Finalize reports
	// ErrNotApproved for a tombstoned request.
	ErrAlreadyFinalized = errors.New("registry: request already approved")
	ErrNotApproved      = errors.New("registry: request not approved")
)
