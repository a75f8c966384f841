package section

// ItemType is the 3-bit item-type field packed into a P2L entry's compound
// value (spec.md §3 "Compound": compound = item.number*8 + item.type).
// Adapted from mebo's format.EncodingType closed-enum-with-String pattern
// (format/types.go).
type ItemType uint8

const (
	// ItemTypePadding marks unused padding at the end of the last page
	// (spec.md §3, "Type 0 marks unused padding").
	ItemTypePadding ItemType = 0
	// The remaining type values (1-7) are assigned by the surrounding
	// repository layer (node-revision, directory, property list, ...); the
	// index engine only needs to round-trip them, not interpret them.
	ItemTypeMax ItemType = 7
)

func (t ItemType) String() string {
	if t == ItemTypePadding {
		return "Padding"
	}
	if t > ItemTypeMax {
		return "Invalid"
	}

	return "Type" + string(rune('0'+t))
}

// FormatVersion identifies the on-disk layout version of L2P/P2L index
// files produced by this package. There is exactly one version today;
// the constant exists so a future incompatible layout change has
// somewhere to be recorded, matching spec.md's silence on versioning
// (the file format itself carries no explicit version field — callers
// distinguish L2P from P2L files only by which path they opened).
const FormatVersion = 1

// Compound packs an item-number/type pair into the single integer P2L page
// bodies delta-encode (spec.md §3).
func Compound(itemNumber uint64, t ItemType) uint64 {
	return itemNumber*8 + uint64(t)
}

// SplitCompound is the inverse of Compound.
func SplitCompound(compound uint64) (itemNumber uint64, t ItemType) {
	return compound / 8, ItemType(compound % 8) //nolint:gosec
}
