// Package http holds the HTTP handlers of the forecast service.
//
// Handlers stay thin: they decode the request, call a service interface
// and render the outcome. Pipeline failures are mapped by toAPIError onto
// RFC 7807 problem responses whose detail is the user-facing message.
//
// Routes:
//
//	GET  /                                  forecast page (form, chart, table)
//	POST /api/forecast                      run a forecast, JSON in and out
//	GET  /api/forecast/{item}.{csv|xlsx}    download the forecast table
//	GET  /api/dataset                       dataset metadata, ETag = fingerprint
//	GET  /api/items?q=&limit=               stock code lookup by prefix
//	GET  /api/health, /ready, /live         health checks
//	GET  /api/version                       build information
package http
