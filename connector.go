package crossdb

// Open builds an unconnected Conn for the backend named in cfg. The config
// is cloned; later mutation by the caller has no effect.
func Open(cfg *Config) (*Conn, error) {
	cfg = cfg.Clone()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	build, ok := lookupBackend(cfg.Backend)
	if !ok {
		return nil, ErrUnknownBackend
	}
	backend, err := build(cfg)
	if err != nil {
		return nil, err
	}
	return newConn(cfg, backend), nil
}

// OpenDSN is Open for a URL-form DSN.
func OpenDSN(dsn string) (*Conn, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return Open(cfg)
}

// OpenBackend wraps an already-constructed Backend in a Conn, bypassing the
// registry. Intended for plugins living outside this module and for tests.
func OpenBackend(cfg *Config, backend Backend) *Conn {
	if cfg == nil {
		cfg = &Config{Backend: "custom"}
	}
	return newConn(cfg.Clone(), backend)
}
