package app

const ServiceName = "intern-service"

// Set via -ldflags during build:
//
//	go build -ldflags="-X 'intern-service/internal/app.Version=1.0.0'"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
