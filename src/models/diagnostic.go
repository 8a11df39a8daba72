package models

import "fmt"

// DiagnosticKind classifies a non-fatal condition found while processing a
// batch of trades.
type DiagnosticKind string

const (
	// DiagnosticMalformedRecord marks a trade line that failed
	// normalization and was skipped.
	DiagnosticMalformedRecord DiagnosticKind = "malformed_record"
	// DiagnosticUnresolvedOption marks an option group whose bought and
	// sold quantities do not match after its expiry month has passed.
	DiagnosticUnresolvedOption DiagnosticKind = "unresolved_option"
)

// Diagnostic is a warning collected during a computation and returned
// alongside the results. One malformed line never aborts the batch.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Asset   string         `json:"ativo,omitempty"`
	LineNo  int            `json:"linha,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Asset != "" {
		return fmt.Sprintf("%s [%s]: %s", d.Kind, d.Asset, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}
