// Package redisgrid implements grid.Grid against Redis. Per the Open
// Question recorded in spec §9 and decided in SPEC_FULL.md §4, every key is
// cluster-scoped (never pod-scoped): a pod restart never orphans state
// because nothing is keyed by pod identity, only by cluster-wide identifiers
// (userId, connectionId, broadcastId).
package redisgrid

import "github.com/google/uuid"

const (
	keyPrefix = "bcast"

	notifyChannel = keyPrefix + ":inbox:notify"
	heartbeatsKey = keyPrefix + ":heartbeats"
)

func connectionsKey(userID uuid.UUID) string {
	return keyPrefix + ":conn:" + userID.String()
}

func inboxKey(userID uuid.UUID) string {
	return keyPrefix + ":inbox:" + userID.String()
}

func pendingKey(userID uuid.UUID) string {
	return keyPrefix + ":pending:" + userID.String()
}

func contentKey(broadcastID uuid.UUID) string {
	return keyPrefix + ":content:" + broadcastID.String()
}
