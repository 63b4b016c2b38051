package jobs

/**
 * @brief Opaque reference to a job: a 32-bit generation in the high half and
 * a 32-bit pool index in the low half. Generations start at 1, so a zero
 * handle can never be produced by allocation.
 */
type JobHandle uint64

const InvalidJob JobHandle = 0

// Stored into a slot's generation field on free, so any handle minted for
// the slot's previous occupant stops resolving.
const invalidGeneration uint32 = 0xFFFFFFFF

func makeHandle(generation, index uint32) JobHandle {
	return JobHandle(uint64(generation)<<32 | uint64(index))
}

func toGeneration(h JobHandle) uint32 {
	return uint32(h >> 32)
}

func toIndex(h JobHandle) uint32 {
	return uint32(h & 0xFFFFFFFF)
}
