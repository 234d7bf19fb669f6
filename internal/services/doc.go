// Package services holds the forecast pipeline boundary and the health
// checks that the HTTP, WebSocket and terminal front ends call into.
//
// ForecastService.RunForecast is the single entry point for a forecast:
// it validates the request, extracts the item's series from the loaded
// table, fits the model and renders the chart and table. Every rejection
// is a typed error; UserMessage turns it into the short text shown to the
// user and Outcome classifies it for metrics.
package services
