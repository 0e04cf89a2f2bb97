package dynamo

// Config holds configuration for the Store.
type Config struct {
	// Table is the records table. The partition key is the numeric "id".
	// Default: "frontedit_records"
	Table string

	// PathIndex is a global secondary index keyed by "path".
	// Default: "path-index"
	PathIndex string

	// MaxOwnerDepth bounds owner lookups for derived records.
	// Default: 8
	MaxOwnerDepth int
}

// DefaultConfig returns the defaults used by New when fields are empty.
func DefaultConfig() Config {
	return Config{
		Table:         "frontedit_records",
		PathIndex:     "path-index",
		MaxOwnerDepth: 8,
	}
}

func (c *Config) validate() {
	defaults := DefaultConfig()
	if c.Table == "" {
		c.Table = defaults.Table
	}
	if c.PathIndex == "" {
		c.PathIndex = defaults.PathIndex
	}
	if c.MaxOwnerDepth < 1 {
		c.MaxOwnerDepth = defaults.MaxOwnerDepth
	}
}
