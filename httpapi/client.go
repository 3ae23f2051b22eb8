// Package httpapi adapts the campus service interfaces to the platform's
// HTTP API.
//
// Every request except Login carries the stored access token as a bearer
// credential, read from the TokenStore at call time. HTTP status codes are
// mapped onto the campus error taxonomy; transport failures and
// unclassified statuses surface as ErrTransport.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	campus "github.com/campushq/campus-go"
)

// Client implements campus.IdentityAPI, campus.VerificationAPI and
// campus.AdminAPI against the HTTP backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  campus.TokenStore
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to set a custom
// transport or timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an adapter for the backend at baseURL, reading bearer
// credentials from tokens.
func New(baseURL string, tokens campus.TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: campus.DefaultRequestTimeout},
		tokens:  tokens,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// --- wire shapes ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type profileResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Verified bool   `json:"is_verified"`
}

type documentJSON struct {
	ID         int64     `json:"id"`
	Document   string    `json:"document"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type submissionJSON struct {
	ID                 int64          `json:"id"`
	Status             string         `json:"status"`
	RejectionReason    string         `json:"rejection_reason"`
	InstructorEmail    string         `json:"instructor_email"`
	InstructorUsername string         `json:"instructor_username"`
	CreatedAt          time.Time      `json:"created_at"`
	ReviewedAt         *time.Time     `json:"reviewed_at"`
	Documents          []documentJSON `json:"documents"`
}

type statusResponse struct {
	Verified    bool            `json:"is_verified"`
	Current     *submissionJSON `json:"current_submission"`
	CanResubmit bool            `json:"can_resubmit"`
}

type rejectRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

type auditEventJSON struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *submissionJSON) summary() campus.Submission {
	return campus.Submission{
		ID:              s.ID,
		Status:          campus.SubmissionStatus(s.Status),
		RejectionReason: s.RejectionReason,
		InstructorEmail: s.InstructorEmail,
		CreatedAt:       s.CreatedAt,
		ReviewedAt:      s.ReviewedAt,
	}
}

func (s *submissionJSON) detail() campus.SubmissionDetail {
	d := campus.SubmissionDetail{
		Submission:         s.summary(),
		InstructorUsername: s.InstructorUsername,
	}
	for _, doc := range s.Documents {
		d.Documents = append(d.Documents, campus.Document{
			ID:         doc.ID,
			StorageRef: doc.Document,
			UploadedAt: doc.UploadedAt,
		})
	}
	return d
}

// --- IdentityAPI ---

// Login exchanges credentials for a new pair. The request is the only one
// sent without a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (campus.CredentialPair, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return campus.CredentialPair{}, fmt.Errorf("campus/httpapi: marshal login request: %w", err)
	}

	var resp loginResponse
	err = c.do(ctx, http.MethodPost, "auth/create", bytes.NewReader(body), "application/json", false, &resp)
	if err != nil {
		// a 401 here means rejected credentials, not an invalid session
		if isStatus(err, http.StatusUnauthorized) {
			return campus.CredentialPair{}, fmt.Errorf("campus/httpapi: login rejected: %w", campus.ErrInvalidCredentials)
		}
		return campus.CredentialPair{}, err
	}
	return campus.CredentialPair{Access: resp.Access, Refresh: resp.Refresh}, nil
}

// Profile resolves the stored credential into an Identity.
func (c *Client) Profile(ctx context.Context) (campus.Identity, error) {
	var resp profileResponse
	if err := c.do(ctx, http.MethodGet, "profile", nil, "", true, &resp); err != nil {
		return campus.Identity{}, err
	}
	return campus.Identity{
		ID:       resp.ID,
		Email:    resp.Email,
		Username: resp.Username,
		Role:     campus.Role(resp.Role),
		Verified: resp.Verified,
	}, nil
}

// --- VerificationAPI ---

// Status returns the server-derived verification status view.
func (c *Client) Status(ctx context.Context) (campus.StatusView, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, "instructor/verification/status", nil, "", true, &resp); err != nil {
		return campus.StatusView{}, err
	}

	view := campus.StatusView{Verified: resp.Verified, CanResubmit: resp.CanResubmit}
	if resp.Current != nil {
		sub := resp.Current.summary()
		view.Current = &sub
	}
	return view, nil
}

// Submit uploads the documents as one multipart request, one part per file
// under the verification_documents field.
func (c *Client) Submit(ctx context.Context, documents []campus.DocumentUpload) error {
	if len(documents) == 0 {
		return fmt.Errorf("campus/httpapi: no documents attached: %w", campus.ErrValidation)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, doc := range documents {
		part, err := mw.CreateFormFile("verification_documents", doc.Filename)
		if err != nil {
			return fmt.Errorf("campus/httpapi: build multipart body: %w", err)
		}
		if _, err := part.Write(doc.Content); err != nil {
			return fmt.Errorf("campus/httpapi: build multipart body: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("campus/httpapi: build multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, "instructor/verification/submit", &buf, mw.FormDataContentType(), true, nil)
}

// --- AdminAPI ---

// ListPending returns the submissions awaiting review, filtered
// server-side.
func (c *Client) ListPending(ctx context.Context) ([]campus.Submission, error) {
	var resp []submissionJSON
	if err := c.do(ctx, http.MethodGet, "admin/verification-submissions?status=pending", nil, "", true, &resp); err != nil {
		return nil, err
	}

	subs := make([]campus.Submission, 0, len(resp))
	for i := range resp {
		subs = append(subs, resp[i].summary())
	}
	return subs, nil
}

// Detail returns a submission with its full document list.
func (c *Client) Detail(ctx context.Context, id int64) (campus.SubmissionDetail, error) {
	var resp submissionJSON
	path := fmt.Sprintf("admin/verification-submissions/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, "", true, &resp); err != nil {
		return campus.SubmissionDetail{}, err
	}
	return resp.detail(), nil
}

// Approve transitions a pending submission to approved.
func (c *Client) Approve(ctx context.Context, id int64) error {
	path := fmt.Sprintf("admin/verification-submissions/%d/approve", id)
	return c.do(ctx, http.MethodPost, path, nil, "", true, nil)
}

// Reject transitions a pending submission to rejected with the reason.
func (c *Client) Reject(ctx context.Context, id int64, reason string) error {
	body, err := json.Marshal(rejectRequest{RejectionReason: reason})
	if err != nil {
		return fmt.Errorf("campus/httpapi: marshal reject request: %w", err)
	}

	path := fmt.Sprintf("admin/verification-submissions/%d/reject", id)
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json", true, nil)
}

// AuditLog returns the ordered review trail of a submission.
func (c *Client) AuditLog(ctx context.Context, id int64) ([]campus.ReviewEvent, error) {
	var resp []auditEventJSON
	path := fmt.Sprintf("admin/verification-submissions/%d/audit", id)
	if err := c.do(ctx, http.MethodGet, path, nil, "", true, &resp); err != nil {
		return nil, err
	}

	events := make([]campus.ReviewEvent, 0, len(resp))
	for _, e := range resp {
		events = append(events, campus.ReviewEvent{
			Actor:  e.Actor,
			Action: campus.ReviewAction(e.Action),
			Reason: e.Reason,
			At:     e.CreatedAt,
		})
	}
	return events, nil
}

// --- request plumbing ---

// statusError keeps the raw HTTP status reachable for mapping special
// cases (login 401) while wrapping the taxonomy sentinel.
type statusError struct {
	status int
	kind   error
	detail string
}

func (e *statusError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.status, e.detail)
	}
	return fmt.Sprintf("backend returned %d", e.status)
}

func (e *statusError) Unwrap() error { return e.kind }

func isStatus(err error, status int) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == status
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, auth bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return fmt.Errorf("campus/httpapi: build request: %w", err)
	}

	requestID := campus.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if auth {
		pair, err := c.tokens.Load(ctx)
		if err != nil {
			return fmt.Errorf("campus/httpapi: load credential: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+pair.Access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("httpapi: request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err)
		return fmt.Errorf("campus/httpapi: %s %s: %v: %w", method, path, err, campus.ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("campus/httpapi: %s %s: %w", method, path, c.classify(resp))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("campus/httpapi: decode response: %v: %w", err, campus.ErrTransport)
		}
	}
	return nil
}

func (c *Client) classify(resp *http.Response) error {
	detail := readDetail(resp.Body)

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = campus.ErrValidation
	case http.StatusUnauthorized:
		kind = campus.ErrSessionInvalid
	case http.StatusNotFound:
		kind = campus.ErrNotFound
	case http.StatusConflict:
		kind = campus.ErrConflict
	default:
		kind = campus.ErrTransport
	}
	return &statusError{status: resp.StatusCode, kind: kind, detail: detail}
}

// readDetail extracts the backend's {"detail": "..."} message, if any.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Detail
}
