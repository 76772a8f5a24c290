package enums

// SlotResolution is the outcome of resolving a requested time range against a
// field's availability. Values are ordered by the priority the resolver applies.
type SlotResolution string

const (
	SlotResolutionNotCreated  SlotResolution = "not_created"
	SlotResolutionOnHold      SlotResolution = "on_hold"
	SlotResolutionBooked      SlotResolution = "booked"
	SlotResolutionUnavailable SlotResolution = "unavailable"
	SlotResolutionAvailable   SlotResolution = "available"
)

// IsBookable reports whether a range resolving to this status may be booked.
func (s SlotResolution) IsBookable() bool {
	return s == SlotResolutionAvailable
}
