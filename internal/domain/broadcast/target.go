package broadcast

import "github.com/google/uuid"

// TargetKind is the discriminant of the tagged TargetSpec union.
type TargetKind string

const (
	TargetAll      TargetKind = "ALL"
	TargetRole     TargetKind = "ROLE"
	TargetProduct  TargetKind = "PRODUCT"
	TargetSelected TargetKind = "SELECTED"
)

// TargetSpec is a tagged variant describing a broadcast's audience.
// Only the field matching Kind is meaningful.
type TargetSpec struct {
	Kind      TargetKind
	Role      string
	Product   string
	UserIDs   []uuid.UUID
}

// Mode reports the fan-out strategy for this variant, per spec §4.2:
// PRODUCT audiences can be arbitrarily large and expensive to compute, so
// they are always precomputed off the hot path (fan-out-on-write); every
// other variant is cheap enough to resolve at consume time.
func (t TargetSpec) Mode() FanOutMode {
	if t.Kind == TargetProduct {
		return FanOutOnWrite
	}
	return FanOutOnRead
}

// Validate checks that the fields required by Kind are present.
func (t TargetSpec) Validate() error {
	switch t.Kind {
	case TargetAll:
		return nil
	case TargetRole:
		if t.Role == "" {
			return errValidation("target ROLE requires a role")
		}
		return nil
	case TargetProduct:
		if t.Product == "" {
			return errValidation("target PRODUCT requires a product")
		}
		return nil
	case TargetSelected:
		if len(t.UserIDs) == 0 {
			return errValidation("target SELECTED requires at least one userId")
		}
		return nil
	default:
		return errValidation("unknown target kind: " + string(t.Kind))
	}
}

// Deduplicated returns a copy of t.UserIDs with duplicates removed,
// preserving first-seen order. Only meaningful for TargetSelected.
func (t TargetSpec) Deduplicated() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(t.UserIDs))
	out := make([]uuid.UUID, 0, len(t.UserIDs))
	for _, id := range t.UserIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
