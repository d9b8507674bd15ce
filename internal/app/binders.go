// Package app assembles the two composition roots of SPEC_FULL §0: the
// Admin Service (broadcast lifecycle, targeting, schedulers, outbox, DLT
// admin API) and the User Service (connection registry, SSE/gRPC delivery,
// orchestrator consumer, stale-reap). Both share the same storage, grid,
// and ambient-stack modules; each wires only the domain modules its own
// binary runs, following the teacher's one-fx.App-per-process shape
// (cmd/fx.go's single NewApp, generalized to two).
//
// fx only resolves a constructor's declared parameter types; a concrete
// *postgres.BroadcastRepository in the graph does not automatically satisfy
// a lifecycle.BroadcastStore parameter. These binder functions close that
// gap explicitly, one per narrow interface a service package declares
// against the store layer.
package app

import (
	"github.com/webitel/broadcast-delivery-service/internal/service/lifecycle"
	"github.com/webitel/broadcast-delivery-service/internal/service/orchestrator"
	"github.com/webitel/broadcast-delivery-service/internal/service/targeting"
	"github.com/webitel/broadcast-delivery-service/internal/store/outbox"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"
	"go.uber.org/fx"
)

// storeBinders supplies the narrow store-facing interfaces that
// internal/service packages declare, bound to the concrete postgres/outbox
// implementations. Both apps import the whole set: the Admin app resolves
// only the lifecycle/targeting bindings (it never constructs an
// orchestrator.Consumer), the User app resolves only the
// orchestrator/targeting bindings. fx only instantiates a provided
// constructor when something downstream actually asks for its return type,
// so the unused half of this set costs nothing in either process.
var storeBinders = fx.Provide(
	func(r *postgres.BroadcastRepository) lifecycle.BroadcastStore { return r },
	func(w *outbox.Writer) lifecycle.OutboxEmitter { return w },

	func(r *postgres.BroadcastRepository) orchestrator.BroadcastLookup { return r },
	func(s *targeting.Service) orchestrator.AudienceResolver { return s },
	func(r *postgres.AudienceRepository) orchestrator.AudiencePager { return r },
	func(r *postgres.DeliveryRepository) orchestrator.DeliverySeeder { return r },

	func(r *postgres.AudienceRepository) targeting.AudienceWriter { return r },
)
