package instance

import "github.com/academiaalbert/academia-backend/pkg/env"

// GetID returns the dyno or host identifier this process runs as.
func GetID() string {
	return env.FirstOf("local", "DYNO", "WORKER_ID", "HOSTNAME")
}
