package leaseelection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvisoryLockKey_StableForSameName(t *testing.T) {
	a := advisoryLockKey("scheduler.precompute")
	b := advisoryLockKey("scheduler.precompute")
	assert.Equal(t, a, b)
}

func TestAdvisoryLockKey_DiffersAcrossNames(t *testing.T) {
	a := advisoryLockKey("scheduler.precompute")
	b := advisoryLockKey("scheduler.activation")
	assert.NotEqual(t, a, b)
}

func TestNew_CapturesConfiguredFields(t *testing.T) {
	l := New(nil, "scheduler.outbox", nil, 0, 0)
	assert.Equal(t, "scheduler.outbox", l.name)
	assert.Equal(t, advisoryLockKey("scheduler.outbox"), l.lockKey)
}
