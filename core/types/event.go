package types

// Event is the broadcastable record of a ledger state change. Attribute
// values are strings so downstream observers can reconstruct the change
// without knowing module internals.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
