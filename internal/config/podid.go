package config

import "github.com/google/uuid"

// randomPodID stands in for os.Hostname() when it is unavailable (e.g. unit
// tests running outside a container), matching the teacher's fallback in
// RegisterHandlers: "nodeID, err := os.Hostname(); if err != nil { nodeID =
// watermill.NewShortUUID() }".
func randomPodID() string {
	return uuid.NewString()
}
