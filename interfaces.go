package campus

import "context"

// TokenStore is the durable, process-wide holder of the credential pair.
// File and Redis backed implementations survive process restarts.
// Implementations: tokenstore/ (file, Redis, in-memory).
type TokenStore interface {
	// Save persists the pair, replacing any previous one.
	Save(ctx context.Context, pair CredentialPair) error

	// Load returns the stored pair, or ErrUnauthenticated when absent.
	Load(ctx context.Context) (CredentialPair, error)

	// Clear removes the stored pair. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// IdentityAPI is the boundary with the external identity service.
// Implementations: httpapi/ (HTTP), fake/ (testing).
type IdentityAPI interface {
	// Login exchanges credentials for a new pair. Returns
	// ErrInvalidCredentials when the service rejects them.
	Login(ctx context.Context, email, password string) (CredentialPair, error)

	// Profile resolves the stored credential into an Identity. Returns
	// ErrUnauthenticated when no credential is stored and ErrSessionInvalid
	// when the service rejects it. Idempotent; never mutates the TokenStore.
	Profile(ctx context.Context) (Identity, error)
}

// VerificationAPI is the instructor-facing verification boundary.
type VerificationAPI interface {
	// Status returns the server-derived verification status view.
	Status(ctx context.Context) (StatusView, error)

	// Submit creates a new pending submission from the given documents.
	// Returns ErrValidation on an empty document list and ErrConflict when a
	// submission is already pending.
	Submit(ctx context.Context, documents []DocumentUpload) error
}

// AdminAPI is the admin-facing review boundary.
type AdminAPI interface {
	// ListPending returns a snapshot of submissions awaiting review.
	ListPending(ctx context.Context) ([]Submission, error)

	// Detail returns a submission with its full document list, or
	// ErrNotFound.
	Detail(ctx context.Context, id int64) (SubmissionDetail, error)

	// Approve transitions a pending submission to approved. Returns
	// ErrConflict when the submission is no longer pending.
	Approve(ctx context.Context, id int64) error

	// Reject transitions a pending submission to rejected with the given
	// reason. Returns ErrValidation on an empty reason and ErrConflict when
	// the submission is no longer pending.
	Reject(ctx context.Context, id int64, reason string) error

	// AuditLog returns the ordered, append-only review trail of a
	// submission.
	AuditLog(ctx context.Context, id int64) ([]ReviewEvent, error)
}
