package dto

import (
	"github.com/turtacn/oidc-core/internal/domain/models"
)

// LogoutRequest ends a single-sign-on session.
type LogoutRequest struct {
	OPSessionID string `json:"op_session_id" form:"op_session_id" binding:"required"`
}

// LogoutNotificationDTO is the delivery state of one back-channel notification.
type LogoutNotificationDTO struct {
	ID             string `json:"id"`
	ClientID       string `json:"client_id"`
	Channel        string `json:"channel"`
	Status         string `json:"status"`
	HTTPStatusCode int    `json:"http_status_code,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	Retryable      bool   `json:"retryable,omitempty"`
}

// LogoutResponse summarizes a logout.
type LogoutResponse struct {
	TenantID         string                  `json:"tenant_id"`
	OPSessionID      string                  `json:"op_session_id"`
	Subject          string                  `json:"sub,omitempty"`
	Notifications    []LogoutNotificationDTO `json:"notifications"`
	FrontChannelURLs []string                `json:"front_channel_urls"`
	HasFailures      bool                    `json:"has_failures"`

	// FrontChannelHTML is the page of hidden iframes; rendered instead of JSON for browsers.
	FrontChannelHTML string `json:"-"`
}

// NewLogoutResponse converts an orchestrator result.
func NewLogoutResponse(result *models.LogoutResult) *LogoutResponse {
	resp := &LogoutResponse{
		TenantID:         result.TenantID,
		OPSessionID:      result.OPSessionID,
		Subject:          result.Subject,
		Notifications:    make([]LogoutNotificationDTO, 0, len(result.Notifications)),
		FrontChannelURLs: make([]string, 0, len(result.FrontChannel)),
		HasFailures:      result.HasFailures(),
	}
	for _, n := range result.Notifications {
		resp.Notifications = append(resp.Notifications, LogoutNotificationDTO{
			ID:             n.ID,
			ClientID:       n.ClientID,
			Channel:        string(n.Channel),
			Status:         string(n.Status),
			HTTPStatusCode: n.HTTPStatusCode,
			ErrorMessage:   n.ErrorMessage,
			Retryable:      n.ShouldRetry(),
		})
	}
	for _, d := range result.FrontChannel {
		resp.FrontChannelURLs = append(resp.FrontChannelURLs, d.URL())
	}
	if len(result.FrontChannel) > 0 {
		resp.FrontChannelHTML = result.FrontChannelHTML()
	}
	return resp
}

// BackChannelLogoutRequest is the form body an upstream provider POSTs.
type BackChannelLogoutRequest struct {
	LogoutToken string `form:"logout_token" binding:"required"`
}

// BackChannelLogoutResult is the answer to a received logout token. StatusCode is 200 when the
// token was accepted and 400 otherwise, as OIDC Back-Channel Logout requires.
type BackChannelLogoutResult struct {
	StatusCode       int    `json:"-"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	Subject          string `json:"sub,omitempty"`
	SessionID        string `json:"sid,omitempty"`

	// Logout is set when a local OP session was terminated as a consequence.
	Logout *LogoutResponse `json:"logout,omitempty"`
}
