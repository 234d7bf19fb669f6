package dataset

import (
	"fmt"
	"strings"
)

// ConfigError reports a source that cannot be read or lacks a required
// column. It is fatal at startup.
type ConfigError struct {
	Source string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data source %q: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("data source %q: %s", e.Source, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UserMessage is the text shown to an operator
func (e *ConfigError) UserMessage() string {
	return fmt.Sprintf("Could not load transactions from %s: %s.", e.Source, e.Reason)
}

// NoMatchError means no row has exactly the requested item identifier
type NoMatchError struct {
	ItemID      string
	Suggestions []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no rows for item %q", e.ItemID)
}

// UserMessage is the text shown to the user
func (e *NoMatchError) UserMessage() string {
	msg := "No data found for the given Stock Code."
	if len(e.Suggestions) > 0 {
		msg += " Did you mean: " + strings.Join(e.Suggestions, ", ") + "?"
	}
	return msg
}

// InsufficientDataError means the item has fewer than MinPoints rows
type InsufficientDataError struct {
	ItemID string
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("item %q has %d usable rows, need at least %d", e.ItemID, e.Points, MinPoints)
}

// UserMessage is the text shown to the user
func (e *InsufficientDataError) UserMessage() string {
	return fmt.Sprintf("Not enough data points for the selected Stock Code. At least %d non-NaN rows are required.", MinPoints)
}
