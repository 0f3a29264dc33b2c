package domain

// ToolName is one of the registry's named operations.
// The set is closed: adapters cannot register new names.
type ToolName string

const (
	ToolHistoryLookup   ToolName = "history_lookup"
	ToolInventoryLookup ToolName = "inventory_lookup"
	ToolRank            ToolName = "rank"
)

// ToolNames lists the registry's operations in a stable order.
var ToolNames = []ToolName{ToolHistoryLookup, ToolInventoryLookup, ToolRank}

// Valid reports whether n belongs to the closed set.
func (n ToolName) Valid() bool {
	for _, known := range ToolNames {
		if n == known {
			return true
		}
	}
	return false
}

// Tool defines metadata about a tool available to the engine.
// This is used for generating schemas (MCP, HTTP).
type Tool struct {
	Name        ToolName       `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}
