package gormrepo

import (
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
)

// Row types keep lookup columns flat and store the nested domain value as JSON.

type authorizationRequestRecord struct {
	ID           string                      `gorm:"primaryKey;size:64"`
	TenantID     string                      `gorm:"primaryKey;size:128"`
	ClientID     string                      `gorm:"index;size:255"`
	ResponseType string                      `gorm:"size:64"`
	Payload      models.AuthorizationRequest `gorm:"serializer:json;type:text"`
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"index"`
}

func (authorizationRequestRecord) TableName() string { return "authorization_requests" }

func newAuthorizationRequestRecord(r *models.AuthorizationRequest) *authorizationRequestRecord {
	return &authorizationRequestRecord{
		ID:           r.ID,
		TenantID:     r.TenantID,
		ClientID:     r.ClientID,
		ResponseType: string(r.ResponseType),
		Payload:      *r,
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
	}
}

type authorizationGrantedRecord struct {
	ID             string               `gorm:"primaryKey;size:64"`
	TenantID       string               `gorm:"uniqueIndex:idx_granted_owner;size:128"`
	ClientID       string               `gorm:"uniqueIndex:idx_granted_owner;size:255"`
	Subject        string               `gorm:"uniqueIndex:idx_granted_owner;size:255"`
	Scopes         []string             `gorm:"serializer:json;type:text"`
	IDTokenClaims  []string             `gorm:"serializer:json;type:text"`
	UserinfoClaims []string             `gorm:"serializer:json;type:text"`
	Consent        models.ConsentClaims `gorm:"serializer:json;type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (authorizationGrantedRecord) TableName() string { return "authorization_grants" }

func newAuthorizationGrantedRecord(g *models.AuthorizationGranted) *authorizationGrantedRecord {
	return &authorizationGrantedRecord{
		ID:             g.ID,
		TenantID:       g.TenantID,
		ClientID:       g.ClientID,
		Subject:        g.Subject,
		Scopes:         g.Scopes,
		IDTokenClaims:  g.IDTokenClaims,
		UserinfoClaims: g.UserinfoClaims,
		Consent:        g.Consent,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
}

func (r *authorizationGrantedRecord) toModel() *models.AuthorizationGranted {
	return &models.AuthorizationGranted{
		ID:             r.ID,
		TenantID:       r.TenantID,
		ClientID:       r.ClientID,
		Subject:        r.Subject,
		Scopes:         r.Scopes,
		IDTokenClaims:  r.IDTokenClaims,
		UserinfoClaims: r.UserinfoClaims,
		Consent:        r.Consent,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type authorizedTokenRecord struct {
	ID                     string   `gorm:"primaryKey;size:64"`
	TenantID               string   `gorm:"index;size:128"`
	ClientID               string   `gorm:"size:255"`
	Subject                string   `gorm:"index;size:255"`
	AuthorizationRequestID string   `gorm:"size:64"`
	TokenJTI               string   `gorm:"column:jti;uniqueIndex;size:64"`
	TokenType              string   `gorm:"size:32"`
	Scopes                 []string `gorm:"serializer:json;type:text"`
	IssuedAt               time.Time
	ExpiresAt              time.Time `gorm:"index"`
}

func (authorizedTokenRecord) TableName() string { return "authorized_tokens" }

func newAuthorizedTokenRecord(t *models.AuthorizedToken) *authorizedTokenRecord {
	return &authorizedTokenRecord{
		ID:                     t.ID,
		TenantID:               t.TenantID,
		ClientID:               t.ClientID,
		Subject:                t.Subject,
		AuthorizationRequestID: t.AuthorizationRequestID,
		TokenJTI:               t.TokenJTI,
		TokenType:              string(t.TokenType),
		Scopes:                 t.Scopes,
		IssuedAt:               t.IssuedAt,
		ExpiresAt:              t.ExpiresAt,
	}
}

type codeGrantRecord struct {
	Code      string                        `gorm:"primaryKey;size:128"`
	TenantID  string                        `gorm:"primaryKey;size:128"`
	ClientID  string                        `gorm:"size:255"`
	Payload   models.AuthorizationCodeGrant `gorm:"serializer:json;type:text"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

func (codeGrantRecord) TableName() string { return "authorization_code_grants" }

type logoutNotificationRecord struct {
	ID             string `gorm:"primaryKey;size:64"`
	TenantID       string `gorm:"index;size:128"`
	Channel        string `gorm:"size:32"`
	ClientID       string `gorm:"index;size:255"`
	SessionID      string `gorm:"column:sid;size:128"`
	Subject        string `gorm:"size:255"`
	LogoutURI      string `gorm:"size:2048"`
	LogoutTokenJTI string `gorm:"size:64"`
	Status         string `gorm:"index;size:32"`
	HTTPStatusCode int
	ErrorMessage   string `gorm:"type:text"`
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

func (logoutNotificationRecord) TableName() string { return "logout_notifications" }

func newLogoutNotificationRecord(n models.LogoutNotification) *logoutNotificationRecord {
	return &logoutNotificationRecord{
		ID:             n.ID,
		TenantID:       n.TenantID,
		Channel:        string(n.Channel),
		ClientID:       n.ClientID,
		SessionID:      n.SessionID,
		Subject:        n.Subject,
		LogoutURI:      n.LogoutURI,
		LogoutTokenJTI: n.LogoutTokenJTI,
		Status:         string(n.Status),
		HTTPStatusCode: n.HTTPStatusCode,
		ErrorMessage:   n.ErrorMessage,
		CreatedAt:      n.CreatedAt,
		CompletedAt:    n.CompletedAt,
	}
}

func (r *logoutNotificationRecord) toModel() models.LogoutNotification {
	return models.LogoutNotification{
		ID:             r.ID,
		TenantID:       r.TenantID,
		Channel:        constants.LogoutChannel(r.Channel),
		ClientID:       r.ClientID,
		SessionID:      r.SessionID,
		Subject:        r.Subject,
		LogoutURI:      r.LogoutURI,
		LogoutTokenJTI: r.LogoutTokenJTI,
		Status:         constants.LogoutNotificationStatus(r.Status),
		HTTPStatusCode: r.HTTPStatusCode,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
		CompletedAt:    r.CompletedAt,
	}
}
