package app

import (
	"time"

	"github.com/charlesng35/socialink/internal/auth"
)

// TokenServiceConfig converts AuthConfig into the parameters expected by the token service.
func (c AuthConfig) TokenServiceConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:               c.JWT.Secret,
		Issuer:               c.JWT.Issuer,
		AccessTokenTTL:       positiveOr(c.JWT.AccessTTL, auth.DefaultAccessTokenTTL),
		ConfirmationTokenTTL: positiveOr(c.JWT.ConfirmationTTL, auth.DefaultConfirmationTokenTTL),
	}
}

func positiveOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
