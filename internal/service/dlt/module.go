package dlt

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"
	"go.uber.org/fx"
)

var Module = fx.Module("dlt",
	fx.Provide(newManager),
)

func newManager(store *postgres.DLTRepository, deliveries *postgres.DeliveryRepository, publisher message.Publisher) *Manager {
	return NewManager(store, deliveries, publisher)
}
