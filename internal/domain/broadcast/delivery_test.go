package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionDelivery(t *testing.T) {
	cases := []struct {
		from, to DeliveryStatus
		want     bool
	}{
		{DeliveryPending, DeliveryPending, true},
		{DeliveryPending, DeliveryDelivered, true},
		{DeliveryPending, DeliveryFailed, true},
		{DeliveryPending, DeliverySuperseded, true},
		{DeliveryFailed, DeliveryDelivered, true},
		{DeliveryFailed, DeliverySuperseded, true},
		{DeliveryFailed, DeliveryPending, false},
		{DeliveryDelivered, DeliveryPending, false},
		{DeliveryDelivered, DeliveryFailed, false},
		{DeliverySuperseded, DeliveryDelivered, false},
	}
	for _, c := range cases {
		got := CanTransitionDelivery(c.from, c.to)
		assert.Equal(t, c.want, got, "%s -> %s", c.from, c.to)
	}
}

func TestCanTransitionRead(t *testing.T) {
	assert.True(t, CanTransitionRead(ReadUnread, ReadUnread))
	assert.True(t, CanTransitionRead(ReadUnread, ReadRead))
	assert.True(t, CanTransitionRead(ReadRead, ReadRead))
	assert.False(t, CanTransitionRead(ReadRead, ReadUnread))
}
