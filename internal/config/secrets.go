package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by
// "***". Use it when logging the active configuration so secrets are never
// exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}
	if cfg.Universe.Variables != nil {
		out.Universe.Variables = append([]string(nil), cfg.Universe.Variables...)
	}
	if cfg.Kalshi.Series != nil {
		out.Kalshi.Series = append([]string(nil), cfg.Kalshi.Series...)
	}
	if cfg.Universe.Cities != nil {
		out.Universe.Cities = append([]CityConfig(nil), cfg.Universe.Cities...)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redaction placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
