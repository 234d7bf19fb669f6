package config

// Application info reported by health endpoints and telemetry
const (
	AppName    = "demandcast"
	AppVersion = "1.0.0"
)

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X demandcast/internal/config.BuildTime=... -X demandcast/internal/config.BuildID=..."
var (
	BuildTime = "unknown"
	BuildID   = "dev"
)
