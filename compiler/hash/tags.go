package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every compile cache entry keyed by a content hash.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 2

// Node type tags.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Literals
	TagIntLiteral byte = 0x01

	// Variable references
	TagBoundVar byte = 0x0B // de Bruijn index
	TagFreeVar  byte = 0x0D // by name

	// Structure
	TagApp   byte = 0x10
	TagBinOp byte = 0x11
	TagAbs   byte = 0x16

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagIntLiteral,
	TagBoundVar, TagFreeVar,
	TagApp, TagBinOp, TagAbs,
}
