// Package shared holds helpers used by the tests of several packages.
//
// The testutil subpackage captures slog output and writes transaction
// fixtures in the CSV and XLSX layouts the dataset loader reads.
package shared
