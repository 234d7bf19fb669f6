// Package app wires configuration, logging, telemetry, the forecast
// pipeline and the HTTP/WebSocket surfaces into one Application, and owns
// its lifecycle.
//
// Startup order:
//
//	1. Resolve config (defaults, YAML file, DEMANDCAST_* env, -source flags)
//	2. Initialize slog and OpenTelemetry
//	3. Build loader, engine and forecast service (NewPipeline)
//	4. Register routes and start the HTTP server
//	5. Load the dataset in the background; /api/health/ready turns 200 once done
//
// A dataset that cannot be loaded stops the process.
package app
