package config

import "github.com/mysqlxp/xproto"

// SessionProperties builds an xproto.SessionProperties from the loaded
// Config. The Dialer is left nil so xproto.Connect falls back to its
// default net.Dialer-backed SocketFactory.
func (c Config) SessionProperties() xproto.SessionProperties {
	endpoints := make([]xproto.Endpoint, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		endpoints[i] = xproto.Endpoint{
			Host:       ep.Host,
			Port:       ep.Port,
			SocketPath: ep.SocketPath,
			Priority:   ep.Priority,
		}
	}

	var mechanisms []string
	if c.AuthMechanism != "" {
		mechanisms = []string{c.AuthMechanism}
	}

	return xproto.SessionProperties{
		User:           c.User,
		Password:       c.Password,
		Schema:         c.Schema,
		SSL:            c.SSL,
		SSLOptions:     c.SSLOptions,
		Endpoints:      endpoints,
		AuthMechanisms: mechanisms,
	}
}
