// Package analysis summarises lifted A32 code: call sites, indirect
// transfers, literal-pool strings, placeholders and faults.
package analysis

const (
	// MaxStringLength is the maximum length for string extraction
	MaxStringLength = 256

	// MinStringLength is the shortest literal reported as a string.
	MinStringLength = 4
)
