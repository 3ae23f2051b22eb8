package campus

import "time"

// Role determines which protected views a session may enter.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// CredentialPair is the opaque access/refresh token pair issued by the
// identity service. Both fields are set together or empty together; the SDK
// never inspects the token contents.
type CredentialPair struct {
	Access  string
	Refresh string
}

// Empty reports whether no credential is held.
func (p CredentialPair) Empty() bool {
	return p.Access == "" && p.Refresh == ""
}

// Identity is the resolved profile of the current user. It is replaced
// wholesale on every successful resolve and never partially mutated.
type Identity struct {
	ID       int64
	Email    string
	Username string
	Role     Role
	Verified bool
}

// SubmissionStatus is the review state of a verification submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// Submission is one instructor's attempt to obtain verified status.
// RejectionReason is non-empty exactly when Status is StatusRejected.
// ReviewedAt is nil until an admin has acted on the submission.
type Submission struct {
	ID              int64
	Status          SubmissionStatus
	RejectionReason string
	InstructorEmail string
	CreatedAt       time.Time
	ReviewedAt      *time.Time
}

// SubmissionDetail is a Submission together with its owner and the full
// document list, as served by the admin detail endpoint.
type SubmissionDetail struct {
	Submission
	InstructorUsername string
	Documents          []Document
}

// Document is a supporting file attached to a submission at creation time
// and immutable thereafter. StorageRef is a URL into the external blob store.
type Document struct {
	ID         int64
	StorageRef string
	UploadedAt time.Time
}

// DocumentUpload is the payload for one document in a submit call.
type DocumentUpload struct {
	Filename string
	Content  []byte
}

// StatusView is the derived verification state shown to an instructor.
// Verified comes from the Identity, not from submission status: verification
// can change out-of-band via admin action and is refreshed independently.
type StatusView struct {
	Verified    bool
	Current     *Submission
	CanResubmit bool
}

// ReviewAction identifies an entry in a submission's audit trail.
type ReviewAction string

const (
	ActionSubmitted ReviewAction = "submitted"
	ActionApproved  ReviewAction = "approved"
	ActionRejected  ReviewAction = "rejected"
)

// ReviewEvent is one entry of the append-only review audit trail.
type ReviewEvent struct {
	Actor  string
	Action ReviewAction
	Reason string
	At     time.Time
}
