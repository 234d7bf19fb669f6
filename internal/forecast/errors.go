package forecast

import "fmt"

// FitError reports that the model could not be fitted or produced unusable
// output for an item.
type FitError struct {
	ItemID string
	Reason string
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("forecast for item %q failed: %s: %v", e.ItemID, e.Reason, e.Err)
	}
	return fmt.Sprintf("forecast for item %q failed: %s", e.ItemID, e.Reason)
}

func (e *FitError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the user
func (e *FitError) UserMessage() string {
	return "Forecast failed for the selected Stock Code: " + e.Reason
}
