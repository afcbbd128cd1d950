package sqlitefmt

// Config holds the tunables a Reader is constructed with. Mirrors the
// teacher's functional-options pattern (app/config.go's DatabaseOption).
type Config struct {
	maxTraversalDepth int
	strictSchema      bool
}

// Option configures a Reader at construction time.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		maxTraversalDepth: 1000,
		strictSchema:      false,
	}
}

// WithMaxTraversalDepth bounds how deep BTree materialization will recurse
// before reporting ErrOverflowCycle-style corruption instead of looping
// forever on a page that points back at an ancestor.
func WithMaxTraversalDepth(depth int) Option {
	return func(c *Config) { c.maxTraversalDepth = depth }
}

// WithStrictSchema makes an out-of-range SchemaFormat (spec §12) a hard
// error instead of the default SchemaFormatWarning annotation.
func WithStrictSchema(strict bool) Option {
	return func(c *Config) { c.strictSchema = strict }
}
