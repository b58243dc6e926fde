package config

// RedactedValue replaces secrets in Redacted output.
const RedactedValue = "[REDACTED]"

// Redacted returns a copy of the configuration safe to print: the provider
// key, Redis password, session secret and access-code digests are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Provider.APIKey = mask(c.Provider.APIKey)
	out.Redis.Password = mask(c.Redis.Password)
	out.Session.Secret = mask(c.Session.Secret)

	out.Access.Codes = nil
	out.Access.CodeHashes = nil
	for range c.Access.CodeHashes {
		out.Access.CodeHashes = append(out.Access.CodeHashes, RedactedValue)
	}

	out.Redis.SingleHost = append([]string(nil), c.Redis.SingleHost...)
	out.Redis.ClusterNodes = append([]string(nil), c.Redis.ClusterNodes...)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return RedactedValue
}
