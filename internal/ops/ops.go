// Package ops holds the operations shared by the CLI, MCP and HTTP surfaces.
// Each operation takes an Input struct and returns an Output struct or an *errors.Error.
package ops

import (
	"time"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// now is the clock used to mint ids and timestamps. Tests replace it.
var now = time.Now
