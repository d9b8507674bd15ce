package grpc

// GetConnectionStatsRequest asks for one user's live connection state, or
// process-wide totals when UserID is empty.
type GetConnectionStatsRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type GetConnectionStatsResponse struct {
	UserID           string `json:"user_id,omitempty"`
	Connected        bool   `json:"connected"`
	ConnectionCount  int32  `json:"connection_count"`
	TotalUsers       int32  `json:"total_users"`
	TotalConnections int32  `json:"total_connections"`
}

// ForceDisconnectRequest tears down one connection (ConnectionID set) or
// every connection a user holds (ConnectionID empty).
type ForceDisconnectRequest struct {
	UserID       string `json:"user_id"`
	ConnectionID string `json:"connection_id,omitempty"`
}

type ForceDisconnectResponse struct {
	Disconnected int32 `json:"disconnected"`
}
