package config

import (
	"fmt"
	"time"

	"github.com/turtacn/oidc-core/internal/domain/models"
	"github.com/turtacn/oidc-core/pkg/constants"
	"github.com/turtacn/oidc-core/pkg/utils"
)

// Config holds the application's configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	Logout        LogoutConfig        `mapstructure:"logout"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Keys          KeysConfig          `mapstructure:"keys"`
	Tenants       []TenantConfig      `mapstructure:"tenants" validate:"dive"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	EnablePprof     bool          `mapstructure:"enable_pprof"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type RedisConfig struct {
	Address      string `mapstructure:"address" validate:"required"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// DatabaseConfig configures the gorm-backed repositories.
type DatabaseConfig struct {
	Driver      string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN         string `mapstructure:"dsn" validate:"required"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// PostgresConfig configures the pgx pool used by the authorization code store. An empty DSN
// keeps codes in the gorm database instead.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address" validate:"required_if=Enabled true"`
	Token     string `mapstructure:"token"`
	MountPath string `mapstructure:"mount_path"`
	KeyPath   string `mapstructure:"key_path"`
}

type KafkaConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Brokers    []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic      string   `mapstructure:"topic"`
	SigningKey string   `mapstructure:"signing_key"` // HMAC key for the signature header; empty disables signing
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate" validate:"min=0,max=1"`
}

// AuthorizationConfig holds the lifetimes applied to tenants that do not override them.
type AuthorizationConfig struct {
	AuthorizationCodeLifetime     time.Duration `mapstructure:"authorization_code_lifetime"`
	AuthorizationRequestLifetime  time.Duration `mapstructure:"authorization_request_lifetime"`
	AuthorizationResponseLifetime time.Duration `mapstructure:"authorization_response_lifetime"`
	AccessTokenLifetime           time.Duration `mapstructure:"access_token_lifetime"`
	IDTokenLifetime               time.Duration `mapstructure:"id_token_lifetime"`
	OAuthSessionLifetime          time.Duration `mapstructure:"oauth_session_lifetime"`
	ConfigurationCacheTTL         time.Duration `mapstructure:"configuration_cache_ttl"`
}

// RateLimitConfig bounds requests per tenant and client IP on the tenant endpoints.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int64         `mapstructure:"requests" validate:"required_if=Enabled true,gte=0"`
	Window   time.Duration `mapstructure:"window"`
}

type LogoutConfig struct {
	BackChannelTimeoutMS int `mapstructure:"back_channel_timeout_ms" validate:"min=1"`
	JTITTLSeconds        int `mapstructure:"jti_ttl_seconds" validate:"min=1"`
	Concurrency          int `mapstructure:"concurrency" validate:"min=1"`
}

func (c LogoutConfig) BackChannelTimeout() time.Duration {
	return time.Duration(c.BackChannelTimeoutMS) * time.Millisecond
}

func (c LogoutConfig) JTITTL() time.Duration {
	return time.Duration(c.JTITTLSeconds) * time.Second
}

// KeysConfig lists PEM signing keys per tenant when Vault is not used.
type KeysConfig struct {
	Static []StaticKeyConfig `mapstructure:"static" validate:"dive"`
}

type StaticKeyConfig struct {
	TenantID       string `mapstructure:"tenant_id" validate:"required"`
	KeyID          string `mapstructure:"kid" validate:"required"`
	Algorithm      string `mapstructure:"alg" validate:"required"`
	PrivateKeyPEM  string `mapstructure:"private_key_pem"`
	PrivateKeyFile string `mapstructure:"private_key_file"`
}

// TenantConfig is the static definition of one authorization server tenant.
type TenantConfig struct {
	ID                                 string         `mapstructure:"id" validate:"required"`
	Issuer                             string         `mapstructure:"issuer" validate:"required,url"`
	AuthorizationEndpoint              string         `mapstructure:"authorization_endpoint"`
	ResponseTypesSupported             []string       `mapstructure:"response_types_supported" validate:"required,min=1"`
	ResponseModesSupported             []string       `mapstructure:"response_modes_supported"`
	ScopesSupported                    []string       `mapstructure:"scopes_supported" validate:"required,min=1"`
	ClaimsSupported                    []string       `mapstructure:"claims_supported"`
	AuthorizationDetailsTypesSupported []string       `mapstructure:"authorization_details_types_supported"`
	FAPIBaselineScopes                 []string       `mapstructure:"fapi_baseline_scopes"`
	FAPIAdvanceScopes                  []string       `mapstructure:"fapi_advance_scopes"`
	JWKS                               string         `mapstructure:"jwks"`
	SigningKeyID                       string         `mapstructure:"signing_key_id"`
	SigningAlgorithm                   string         `mapstructure:"signing_algorithm" validate:"omitempty,oneof=RS256 RS384 RS512 PS256 PS384 PS512 ES256 ES384 ES512 EdDSA"`
	Clients                            []ClientConfig `mapstructure:"clients" validate:"dive"`
	Upstream                           UpstreamConfig `mapstructure:"upstream"`
}

// UpstreamConfig names the federated provider whose logout tokens the tenant accepts.
type UpstreamConfig struct {
	Issuer   string `mapstructure:"issuer" validate:"omitempty,url"`
	ClientID string `mapstructure:"client_id" validate:"required_with=Issuer"`
	JWKS     string `mapstructure:"jwks" validate:"required_with=Issuer"`
}

type ClientConfig struct {
	ClientID                          string   `mapstructure:"client_id" validate:"required"`
	ClientSecret                      string   `mapstructure:"client_secret"`
	ClientName                        string   `mapstructure:"client_name"`
	RedirectURIs                      []string `mapstructure:"redirect_uris" validate:"required,min=1,dive,url"`
	ResponseTypes                     []string `mapstructure:"response_types" validate:"required,min=1"`
	Scopes                            []string `mapstructure:"scopes"`
	RequestURIs                       []string `mapstructure:"request_uris" validate:"dive,url"`
	TokenEndpointAuthMethod           string   `mapstructure:"token_endpoint_auth_method"`
	JWKS                              string   `mapstructure:"jwks"`
	TosURI                            string   `mapstructure:"tos_uri"`
	PolicyURI                         string   `mapstructure:"policy_uri"`
	BackchannelLogoutURI              string   `mapstructure:"backchannel_logout_uri" validate:"omitempty,url"`
	BackchannelLogoutSessionRequired  bool     `mapstructure:"backchannel_logout_session_required"`
	FrontchannelLogoutURI             string   `mapstructure:"frontchannel_logout_uri" validate:"omitempty,url"`
	FrontchannelLogoutSessionRequired bool     `mapstructure:"frontchannel_logout_session_required"`
	AuthorizationSignedResponseAlg    string   `mapstructure:"authorization_signed_response_alg"`
	AuthorizationDetailsTypes         []string `mapstructure:"authorization_details_types"`
	AllowUnsignedRequestObject        bool     `mapstructure:"allow_unsigned_request_object"`
}

// Validate checks the configuration with the struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Tenants))
	for _, t := range c.Tenants {
		if seen[t.ID] {
			return fmt.Errorf("tenant %q is defined more than once", t.ID)
		}
		seen[t.ID] = true
	}
	keyAlg := make(map[string]string, len(c.Keys.Static))
	for _, k := range c.Keys.Static {
		keyAlg[k.TenantID] = k.Algorithm
	}
	for _, t := range c.Tenants {
		if alg, ok := keyAlg[t.ID]; ok && t.SigningAlgorithm != "" && t.SigningAlgorithm != alg {
			return fmt.Errorf("tenant %q declares signing_algorithm %s but its static key is %s", t.ID, t.SigningAlgorithm, alg)
		}
	}
	if c.Database.Driver == "postgres" && c.Postgres.DSN == "" {
		c.Postgres.DSN = c.Database.DSN
	}
	return nil
}

// ServerConfiguration converts a tenant definition, applying the global lifetimes. An empty
// signing algorithm means the algorithm of the tenant's key.
func (t TenantConfig) ServerConfiguration(auth AuthorizationConfig) *models.ServerConfiguration {
	var upstream *models.UpstreamProvider
	if t.Upstream.Issuer != "" {
		upstream = &models.UpstreamProvider{
			Issuer:   t.Upstream.Issuer,
			ClientID: t.Upstream.ClientID,
			JWKS:     t.Upstream.JWKS,
		}
	}
	return &models.ServerConfiguration{
		TenantID:                           t.ID,
		TokenIssuer:                        t.Issuer,
		AuthorizationEndpoint:              t.AuthorizationEndpoint,
		ResponseTypesSupported:             t.ResponseTypesSupported,
		ResponseModesSupported:             t.ResponseModesSupported,
		ScopesSupported:                    t.ScopesSupported,
		ClaimsSupported:                    t.ClaimsSupported,
		AuthorizationDetailsTypesSupported: t.AuthorizationDetailsTypesSupported,
		FAPIBaselineScopes:                 t.FAPIBaselineScopes,
		FAPIAdvanceScopes:                  t.FAPIAdvanceScopes,
		JWKS:                               t.JWKS,
		SigningKeyID:                       t.SigningKeyID,
		SigningAlgorithm:                   t.SigningAlgorithm,
		AuthorizationCodeValidDuration:     auth.AuthorizationCodeLifetime,
		AuthorizationRequestDuration:       auth.AuthorizationRequestLifetime,
		AuthorizationResponseDuration:      auth.AuthorizationResponseLifetime,
		AccessTokenDuration:                auth.AccessTokenLifetime,
		IDTokenDuration:                    auth.IDTokenLifetime,
		OAuthSessionDuration:               auth.OAuthSessionLifetime,
		Upstream:                           upstream,
	}
}

// ClientConfiguration converts a client definition of the tenant.
func (c ClientConfig) ClientConfiguration(tenantID string) *models.ClientConfiguration {
	method := c.TokenEndpointAuthMethod
	if method == "" {
		method = "client_secret_basic"
	}
	return &models.ClientConfiguration{
		TenantID:                          tenantID,
		ClientID:                          c.ClientID,
		ClientSecret:                      c.ClientSecret,
		ClientName:                        c.ClientName,
		RedirectURIs:                      c.RedirectURIs,
		ResponseTypes:                     c.ResponseTypes,
		Scopes:                            c.Scopes,
		RequestURIs:                       c.RequestURIs,
		TokenEndpointAuthMethod:           method,
		JWKS:                              c.JWKS,
		TosURI:                            c.TosURI,
		PolicyURI:                         c.PolicyURI,
		BackchannelLogoutURI:              c.BackchannelLogoutURI,
		BackchannelLogoutSessionRequired:  c.BackchannelLogoutSessionRequired,
		FrontchannelLogoutURI:             c.FrontchannelLogoutURI,
		FrontchannelLogoutSessionRequired: c.FrontchannelLogoutSessionRequired,
		AuthorizationSignedResponseAlg:    c.AuthorizationSignedResponseAlg,
		AuthorizationDetailsTypes:         c.AuthorizationDetailsTypes,
		AllowUnsignedRequestObject:        c.AllowUnsignedRequestObject,
	}
}

func setDefaults(set func(key string, value interface{})) {
	set("server.host", "0.0.0.0")
	set("server.port", 8080)
	set("server.read_timeout", "15s")
	set("server.write_timeout", "15s")
	set("server.shutdown_timeout", "10s")
	set("log.level", "info")
	set("log.format", "json")
	set("redis.address", "localhost:6379")
	set("redis.pool_size", 20)
	set("database.driver", "sqlite")
	set("database.dsn", "file:oidc-core.db?cache=shared")
	set("database.auto_migrate", true)
	set("postgres.max_conns", 20)
	set("postgres.min_conns", 2)
	set("postgres.max_conn_lifetime", "30m")
	set("postgres.max_conn_idle_time", "5m")
	set("vault.mount_path", "secret")
	set("vault.key_path", "oidc-core/signing-keys")
	set("kafka.topic", "oidc-core-audit")
	set("tracing.service_name", constants.ServiceName)
	set("tracing.sampling_rate", 1.0)
	set("authorization.authorization_code_lifetime", constants.AuthorizationCodeDefaultTTL.String())
	set("authorization.authorization_request_lifetime", constants.AuthorizationRequestDefaultTTL.String())
	set("authorization.authorization_response_lifetime", constants.AuthorizationResponseDefaultTTL.String())
	set("authorization.access_token_lifetime", constants.AccessTokenDefaultTTL.String())
	set("authorization.id_token_lifetime", constants.IDTokenDefaultTTL.String())
	set("authorization.oauth_session_lifetime", constants.OAuthSessionDefaultTTL.String())
	set("authorization.configuration_cache_ttl", constants.ConfigurationCacheTTL.String())
	set("logout.back_channel_timeout_ms", int(constants.BackChannelLogoutTimeout/time.Millisecond))
	set("logout.jti_ttl_seconds", int(constants.LogoutTokenJTITTL/time.Second))
	set("logout.concurrency", 8)
	set("rate_limit.enabled", false)
	set("rate_limit.requests", 120)
	set("rate_limit.window", "1m")
}
