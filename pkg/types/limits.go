package types

const (
	// MaxTypes is the number of assignable TypeIDs (zero is reserved).
	MaxTypes = 1<<16 - 1

	// MaxSlots is the highest slot index a Ref can address.
	MaxSlots = 1<<32 - 1

	// RefSize is the encoded size of a Ref field inside an object payload.
	RefSize = 8
)
