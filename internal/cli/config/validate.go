package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
)

// ValidOutputs lists the accepted values of the output key.
var ValidOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.OutputFormat != "" && !slices.Contains(ValidOutputs, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output must be one of %v, got %q", ValidOutputs, c.OutputFormat))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("server.session_ttl must not be negative"))
	}
	if c.Client.Timeout < 0 {
		errs = append(errs, fmt.Errorf("client.timeout must not be negative"))
	}
	if err := validateURL("grist.base_url", c.Grist.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.ProxyURL != "" {
		if err := validateURL("proxy_url", c.ProxyURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, fmt.Errorf("history.path is required when history is enabled"))
	}

	return errors.Join(errs...)
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
	}
	return nil
}
