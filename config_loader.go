package auth

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading from the environment,
// e.g. AUTH_ACCESS_SECRET.
const EnvPrefix = "AUTH"

// LoadConfig reads an optional config file at path, overlays AUTH_ prefixed
// environment variables and validates the result. An empty path reads the
// environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("access_secret", "")
	v.SetDefault("refresh_secret", "")
	v.SetDefault("issuer", def.Issuer)
	v.SetDefault("audience", def.Audience)
	v.SetDefault("access_expiry", def.AccessExpiry)
	v.SetDefault("refresh_expiry", def.RefreshExpiry)
	v.SetDefault("remember_me_expiry", def.RememberMeExpiry)
	v.SetDefault("reset_expiry", def.ResetExpiry)
	v.SetDefault("verification_expiry", def.VerificationExpiry)
	v.SetDefault("bcrypt_cost", def.BcryptCost)
	v.SetDefault("hash_concurrency", def.HashConcurrency)
	v.SetDefault("require_email_verification", def.RequireEmailVerification)
	v.SetDefault("refresh_cookie_name", def.RefreshCookieName)
	v.SetDefault("refresh_cookie_path", def.RefreshCookiePath)
	v.SetDefault("cookie_secure", def.CookieSecure)
	v.SetDefault("token_lookup", def.TokenLookup)
	v.SetDefault("auth_scheme", def.AuthScheme)
	v.SetDefault("max_sessions", def.MaxSessions)
	v.SetDefault("revocation_purge_interval", def.RevocationPurgeInterval)
	v.SetDefault("debug", def.Debug)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, NewValidationError("unable to read auth configuration", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, NewValidationError("unable to decode auth configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
