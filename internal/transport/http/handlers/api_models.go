package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error      string `json:"error"`
	TraceID    string `json:"trace_id,omitempty"`
	RetryAfter int    `json:"retry_after_seconds,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// DeviceSignalsPayload carries the raw browser signals used for fingerprinting.
type DeviceSignalsPayload struct {
	UserAgent  string `json:"user_agent"`
	Resolution string `json:"resolution"`
	Timezone   string `json:"timezone"`
	Locale     string `json:"locale"`
}

func (p DeviceSignalsPayload) toDomain(fallbackUA string) domain.DeviceSignals {
	ua := p.UserAgent
	if ua == "" {
		ua = fallbackUA
	}
	return domain.DeviceSignals{
		UserAgent:  ua,
		Resolution: p.Resolution,
		Timezone:   p.Timezone,
		Locale:     p.Locale,
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string               `json:"username" binding:"required"`
	Password string               `json:"password" binding:"required"`
	Signals  DeviceSignalsPayload `json:"signals"`
}

// LoginOTPRequest completes a login challenged with a one-time code.
type LoginOTPRequest struct {
	Username       string               `json:"username" binding:"required"`
	Code           string               `json:"code" binding:"required"`
	Signals        DeviceSignalsPayload `json:"signals"`
	RememberDevice bool                 `json:"remember_device"`
}

// LoginResendRequest asks for a fresh one-time code.
type LoginResendRequest struct {
	Username string `json:"username" binding:"required"`
}

// AccountSummary describes a minimal view of an administrator account.
type AccountSummary struct {
	ID       string               `json:"id"`
	Username string               `json:"username"`
	Email    string               `json:"email"`
	Role     domain.Role          `json:"role"`
	Status   domain.AccountStatus `json:"status"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		Role:     account.Role,
		Status:   account.Status,
	}
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	Token     string         `json:"token,omitempty"`
	TokenType string         `json:"token_type,omitempty"`
	Account   AccountSummary `json:"account"`

	// Set when the device is untrusted and a one-time code is pending.
	RequiresOTP bool `json:"requires_otp,omitempty"`
	CodeTTLSecs int  `json:"code_ttl_seconds,omitempty"`
}

// DeviceSummary is a device record as shown on the trusted-devices page.
type DeviceSummary struct {
	Fingerprint string    `json:"fingerprint"`
	DisplayName string    `json:"display_name"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	IPAddress   string    `json:"ip_address"`
	Trusted     bool      `json:"trusted"`
	FirstSeen   time.Time `json:"first_seen"`
	LastUsed    time.Time `json:"last_used"`
}

func newDeviceSummary(device domain.TrustedDevice) DeviceSummary {
	return DeviceSummary{
		Fingerprint: device.Fingerprint,
		DisplayName: device.DisplayName,
		Browser:     device.Browser,
		OS:          device.OS,
		IPAddress:   device.IPAddress,
		Trusted:     device.Trusted,
		FirstSeen:   device.FirstSeen,
		LastUsed:    device.LastUsed,
	}
}

// CreateAdminRequest provisions a new administrator account.
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// SetStatusRequest enables or disables an account.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AuditEntryView is an audit record as rendered in the activity log.
type AuditEntryView struct {
	ID         string              `json:"id"`
	Action     string              `json:"action"`
	Resource   domain.Resource     `json:"resource"`
	ResourceID string              `json:"resource_id,omitempty"`
	ActorID    string              `json:"actor_id"`
	ActorRole  domain.Role         `json:"actor_role"`
	IPAddress  string              `json:"ip_address,omitempty"`
	Outcome    domain.AuditOutcome `json:"outcome"`
	Before     map[string]any      `json:"before,omitempty"`
	After      map[string]any      `json:"after,omitempty"`
	At         time.Time           `json:"at"`
}

func newAuditEntryView(entry domain.AuditEntry) AuditEntryView {
	return AuditEntryView{
		ID:         entry.ID,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		IPAddress:  entry.IPAddress,
		Outcome:    entry.Outcome,
		Before:     entry.Before,
		After:      entry.After,
		At:         entry.At,
	}
}

// AuditPageResponse is one page of the activity log.
type AuditPageResponse struct {
	Entries []AuditEntryView `json:"entries"`
	Total   int              `json:"total"`
}

// ConfirmationView is the state of a pending confirmation session.
type ConfirmationView struct {
	ID            string                   `json:"id"`
	Action        string                   `json:"action"`
	State         domain.ConfirmationState `json:"state"`
	Stage         string                   `json:"stage,omitempty"`
	StageIndex    int                      `json:"stage_index"`
	StageCount    int                      `json:"stage_count"`
	CountdownSecs int                      `json:"countdown_seconds,omitempty"`
}

// SubmitPhraseRequest answers a typed-phrase stage.
type SubmitPhraseRequest struct {
	Phrase string `json:"phrase" binding:"required"`
}

// SubmitPasswordRequest answers a password stage.
type SubmitPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// SubmitCodeRequest answers a one-time code stage.
type SubmitCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// PermissionsResponse lists what the caller's role may do.
type PermissionsResponse struct {
	Role      domain.Role              `json:"role"`
	Resources []domain.Resource        `json:"resources"`
	Grants    []domain.CapabilityGrant `json:"grants,omitempty"`
}
