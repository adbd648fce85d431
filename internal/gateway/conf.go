package gateway

// DefaultAddr is where the gateway listens when no address is configured.
const DefaultAddr = "127.0.0.1:5080"

// AuthToken maps a static bearer token to the entity and permission scopes a
// connection presenting it acts with.
type AuthToken struct {
	Token    string   `json:"token" mapstructure:"token"`
	EntityID string   `json:"entity_id" mapstructure:"entity_id"`
	Scopes   []string `json:"scopes" mapstructure:"scopes"`
}

// Config is the gateway configuration, loaded via pkg/config.
type Config struct {
	Addr         string      `json:"addr" mapstructure:"addr"`
	Verbose      bool        `json:"verbose" mapstructure:"verbose"`
	Capabilities []string    `json:"capabilities" mapstructure:"capabilities"`
	Tokens       []AuthToken `json:"tokens" mapstructure:"tokens"`
}

// GetAddr returns the configured listen address or the default.
func (c *Config) GetAddr() string {
	if c.Addr == "" {
		return DefaultAddr
	}
	return c.Addr
}

// lookupToken resolves a bearer token to its auth entry.
func (c *Config) lookupToken(token string) (AuthToken, bool) {
	if token == "" {
		return AuthToken{}, false
	}
	for _, entry := range c.Tokens {
		if entry.Token == token {
			return entry, true
		}
	}
	return AuthToken{}, false
}
