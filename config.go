package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

// MinSecretLength is the minimum byte length of a signing secret
const MinSecretLength = 32

// Config holds the options recognized by the token and session services.
// Durations are unit suffixed strings understood by ParseExpiry.
type Config struct {
	AccessSecret             string `mapstructure:"access_secret" json:"access_secret"`
	RefreshSecret            string `mapstructure:"refresh_secret" json:"refresh_secret"`
	Issuer                   string `mapstructure:"issuer" json:"issuer"`
	Audience                 string `mapstructure:"audience" json:"audience"`
	AccessExpiry             string `mapstructure:"access_expiry" json:"access_expiry"`
	RefreshExpiry            string `mapstructure:"refresh_expiry" json:"refresh_expiry"`
	RememberMeExpiry         string `mapstructure:"remember_me_expiry" json:"remember_me_expiry"`
	ResetExpiry              string `mapstructure:"reset_expiry" json:"reset_expiry"`
	VerificationExpiry       string `mapstructure:"verification_expiry" json:"verification_expiry"`
	BcryptCost               int    `mapstructure:"bcrypt_cost" json:"bcrypt_cost"`
	HashConcurrency          int    `mapstructure:"hash_concurrency" json:"hash_concurrency"`
	RequireEmailVerification bool   `mapstructure:"require_email_verification" json:"require_email_verification"`
	RefreshCookieName        string `mapstructure:"refresh_cookie_name" json:"refresh_cookie_name"`
	RefreshCookiePath        string `mapstructure:"refresh_cookie_path" json:"refresh_cookie_path"`
	CookieSecure             bool   `mapstructure:"cookie_secure" json:"cookie_secure"`
	TokenLookup              string `mapstructure:"token_lookup" json:"token_lookup"`
	AuthScheme               string `mapstructure:"auth_scheme" json:"auth_scheme"`
	MaxSessions              int    `mapstructure:"max_sessions" json:"max_sessions"`
	RevocationPurgeInterval  string `mapstructure:"revocation_purge_interval" json:"revocation_purge_interval"`
	Debug                    bool   `mapstructure:"debug" json:"debug"`
}

// DefaultConfig returns a Config with every default applied. Secrets are
// left empty and must be provided.
func DefaultConfig() Config {
	return Config{
		Issuer:                  "go-authsession",
		Audience:                "go-authsession-api",
		AccessExpiry:            "15m",
		RefreshExpiry:           "7d",
		RememberMeExpiry:        "30d",
		ResetExpiry:             "1h",
		VerificationExpiry:      "24h",
		BcryptCost:              12,
		HashConcurrency:         4,
		RefreshCookieName:       "refresh_token",
		RefreshCookiePath:       "/auth",
		CookieSecure:            true,
		TokenLookup:             "header:Authorization",
		AuthScheme:              "Bearer",
		MaxSessions:             DefaultMaxSessions,
		RevocationPurgeInterval: "10m",
	}
}

// Validate checks secrets, durations and numeric bounds.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.AccessSecret, validation.Required, validation.Length(MinSecretLength, 0)),
		validation.Field(&c.RefreshSecret,
			validation.Required,
			validation.Length(MinSecretLength, 0),
			validation.NotIn(c.AccessSecret).Error("must differ from the access secret"),
		),
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.Audience, validation.Required),
		validation.Field(&c.AccessExpiry, validation.Required, validation.By(isExpiry)),
		validation.Field(&c.RefreshExpiry, validation.Required, validation.By(isExpiry)),
		validation.Field(&c.RememberMeExpiry, validation.Required, validation.By(isExpiry)),
		validation.Field(&c.ResetExpiry, validation.Required, validation.By(isExpiry)),
		validation.Field(&c.VerificationExpiry, validation.Required, validation.By(isExpiry)),
		validation.Field(&c.RevocationPurgeInterval, validation.By(isExpiry)),
		validation.Field(&c.BcryptCost, validation.Min(bcrypt.MinCost), validation.Max(bcrypt.MaxCost)),
		validation.Field(&c.HashConcurrency, validation.Min(1)),
		validation.Field(&c.MaxSessions, validation.Min(1)),
	)
	if err != nil {
		return NewValidationError("invalid auth configuration", err)
	}
	return nil
}

func isExpiry(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := ParseExpiry(s)
	if err != nil {
		return fmt.Errorf("must be a duration such as 15m, 7d or 1w")
	}
	if d <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func (c Config) GetAccessSecret() []byte {
	return []byte(c.AccessSecret)
}

func (c Config) GetRefreshSecret() []byte {
	return []byte(c.RefreshSecret)
}

func (c Config) GetIssuer() string {
	return c.Issuer
}

func (c Config) GetAudience() string {
	return c.Audience
}

func (c Config) AccessTTL() time.Duration {
	return expiryOr(c.AccessExpiry, 15*time.Minute)
}

func (c Config) RefreshTTL() time.Duration {
	return expiryOr(c.RefreshExpiry, 7*24*time.Hour)
}

func (c Config) RememberMeTTL() time.Duration {
	return expiryOr(c.RememberMeExpiry, 30*24*time.Hour)
}

func (c Config) ResetTTL() time.Duration {
	return expiryOr(c.ResetExpiry, time.Hour)
}

func (c Config) VerificationTTL() time.Duration {
	return expiryOr(c.VerificationExpiry, 24*time.Hour)
}

func (c Config) PurgeInterval() time.Duration {
	return expiryOr(c.RevocationPurgeInterval, 10*time.Minute)
}

// TTLFor returns the configured lifetime for tokens of purpose p
func (c Config) TTLFor(p Purpose) time.Duration {
	switch p {
	case PurposeAccess:
		return c.AccessTTL()
	case PurposeRefresh:
		return c.RefreshTTL()
	case PurposePasswordReset:
		return c.ResetTTL()
	case PurposeEmailVerification:
		return c.VerificationTTL()
	}
	return 0
}

func (c Config) GetBcryptCost() int {
	if c.BcryptCost == 0 {
		return 12
	}
	return c.BcryptCost
}

func (c Config) GetHashConcurrency() int {
	if c.HashConcurrency <= 0 {
		return 4
	}
	return c.HashConcurrency
}

func (c Config) GetMaxSessions() int {
	if c.MaxSessions <= 0 {
		return DefaultMaxSessions
	}
	return c.MaxSessions
}

func (c Config) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return "refresh_token"
	}
	return c.RefreshCookieName
}

func (c Config) GetRefreshCookiePath() string {
	if c.RefreshCookiePath == "" {
		return "/auth"
	}
	return c.RefreshCookiePath
}

func (c Config) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization"
	}
	return c.TokenLookup
}

func (c Config) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func expiryOr(expr string, fallback time.Duration) time.Duration {
	if expr == "" {
		return fallback
	}
	d, err := ParseExpiry(expr)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
