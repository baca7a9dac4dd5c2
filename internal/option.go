package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	cfg *Config
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.cfg = cfg
	}
}
