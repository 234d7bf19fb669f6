package domain

import (
	"time"
)

// TransactionRecord represents one cleaned retail transaction row.
// Timestamp and Quantity are always present after loading; columns other
// than item, timestamp and quantity are not retained.
type TransactionRecord struct {
	ItemID    string    `json:"item_id"`
	Timestamp time.Time `json:"timestamp"`
	Quantity  float64   `json:"quantity"`
	Source    string    `json:"source,omitempty"`
}

// SourceStats describes how many rows one source contributed
type SourceStats struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	RowsRead    int    `json:"rows_read"`
	RowsKept    int    `json:"rows_kept"`
	RowsDropped int    `json:"rows_dropped"`
}

// DatasetInfo summarizes the loaded transaction table
type DatasetInfo struct {
	Fingerprint string        `json:"fingerprint"`
	Rows        int           `json:"rows"`
	Items       int           `json:"items"`
	From        *time.Time    `json:"from,omitempty"`
	To          *time.Time    `json:"to,omitempty"`
	Sources     []SourceStats `json:"sources"`
	LoadedAt    time.Time     `json:"loaded_at"`
}
