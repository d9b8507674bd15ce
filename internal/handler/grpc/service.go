package grpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/webitel/broadcast-delivery-service/internal/domain/registry"
	"github.com/webitel/broadcast-delivery-service/internal/grid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Service implements the admin-plane control surface: connection stats and
// forced disconnect, the two RPCs spec §6 carves out from the REST API.
type Service struct {
	hub  registry.Hubber
	grid grid.Grid
}

func NewService(hub registry.Hubber, g grid.Grid) *Service {
	return &Service{hub: hub, grid: g}
}

func (s *Service) GetConnectionStats(ctx context.Context, req *GetConnectionStatsRequest) (*GetConnectionStatsResponse, error) {
	if req.UserID == "" {
		stats := s.hub.Stats()
		return &GetConnectionStatsResponse{
			TotalUsers:       int32(stats.TotalUsers),
			TotalConnections: int32(stats.TotalConnections),
		}, nil
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "user_id is not a uuid")
	}

	count, err := s.grid.ConnectionCount(ctx, userID)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "connection count lookup failed")
	}

	return &GetConnectionStatsResponse{
		UserID:          req.UserID,
		Connected:       s.hub.IsConnected(userID),
		ConnectionCount: int32(count),
	}, nil
}

func (s *Service) ForceDisconnect(ctx context.Context, req *ForceDisconnectRequest) (*ForceDisconnectResponse, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "user_id is not a uuid")
	}

	if req.ConnectionID != "" {
		connID, err := uuid.Parse(req.ConnectionID)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "connection_id is not a uuid")
		}
		s.hub.Unregister(ctx, userID, connID)
		return &ForceDisconnectResponse{Disconnected: 1}, nil
	}

	return &ForceDisconnectResponse{Disconnected: int32(s.hub.DisconnectAll(userID))}, nil
}
