package registry

import "time"

// Option configures a Hub at construction time.
type Option func(*Hub)

func WithEvictionInterval(d time.Duration) Option {
	return func(h *Hub) { h.evictionInterval = d }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(h *Hub) { h.idleTimeout = d }
}

func WithMailboxSize(size int) Option {
	return func(h *Hub) { h.mailboxSize = size }
}

func WithPodID(id string) Option {
	return func(h *Hub) { h.podID = id }
}

func WithClusterID(id string) Option {
	return func(h *Hub) { h.clusterID = id }
}
