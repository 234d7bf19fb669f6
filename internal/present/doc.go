// Package present turns a forecast result into what users see: an SVG
// chart, the horizon table, a terminal chart and CSV or Excel downloads.
//
// Every function is pure; the same result always renders the same output.
package present
