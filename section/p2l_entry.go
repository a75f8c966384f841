package section

import (
	"github.com/go-fsfs/fsfs/varint"
)

// P2LEntry is the logical P2L entry spec.md §3 defines: a single item's
// location, size, identity, and integrity checksum.
type P2LEntry struct {
	Offset     int64
	Size       int64
	ItemNumber uint64
	Type       ItemType
	Revision   int64
	Checksum   uint32 // fnv1 checksum
}

// P2LPage is a decoded P2L page: the items whose offsets fall within one
// cluster (spec.md §3 "P2L index file").
type P2LPage struct {
	Entries []P2LEntry
}

// Compound returns the packed (item-number, type) value this entry's
// delta is computed against (spec.md §3 "Compound").
func (e P2LEntry) Compound() uint64 {
	return Compound(e.ItemNumber, e.Type)
}

// EncodeP2LPage encodes one P2L page body: the first entry's absolute
// offset, then per entry (size, compound_delta, revision_delta,
// checksum), with compound and revision reset to 0/firstRevision at the
// start of each page (spec.md §4.5 step 2, §6).
func EncodeP2LPage(entries []P2LEntry, firstRevision int64) []byte {
	buf := make([]byte, 0, len(entries)*8)

	if len(entries) == 0 {
		return buf
	}

	buf = varint.AppendUvarint(buf, uint64(entries[0].Offset)) //nolint:gosec

	lastCompound := uint64(0)
	lastRevision := firstRevision

	for _, e := range entries {
		buf = varint.AppendUvarint(buf, uint64(e.Size)) //nolint:gosec

		compound := e.Compound()
		buf = varint.AppendVarint(buf, int64(compound-lastCompound)) //nolint:gosec
		lastCompound = compound

		buf = varint.AppendVarint(buf, e.Revision-lastRevision)
		lastRevision = e.Revision

		buf = varint.AppendUvarint(buf, uint64(e.Checksum))
	}

	return buf
}

// DecodeP2LPageAll decodes every entry in a page body without knowing the
// entry count in advance, stopping once raw is exhausted. Used by the P2L
// reader, which only knows a page's byte range (section.P2LHeader carries
// no per-page entry count, unlike the L2P page table).
func DecodeP2LPageAll(raw []byte, firstRevision int64, file string, baseOffset int64) ([]P2LEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	pos := 0

	firstOffset, n, err := varint.ReadUvarint(raw[pos:], file, baseOffset+int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	offset := int64(firstOffset) //nolint:gosec
	lastCompound := uint64(0)
	lastRevision := firstRevision

	var out []P2LEntry

	for pos < len(raw) {
		size, n, err := varint.ReadUvarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		compoundDelta, n, err := varint.ReadVarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		revDelta, n, err := varint.ReadVarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		checksum, n, err := varint.ReadUvarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		compound := uint64(int64(lastCompound) + compoundDelta) //nolint:gosec
		lastCompound = compound
		lastRevision += revDelta

		itemNumber, itemType := SplitCompound(compound)
		entrySize := int64(size) //nolint:gosec

		out = append(out, P2LEntry{
			Offset:     offset,
			Size:       entrySize,
			ItemNumber: itemNumber,
			Type:       itemType,
			Revision:   lastRevision,
			Checksum:   uint32(checksum), //nolint:gosec
		})

		offset += entrySize
	}

	return out, nil
}

// DecodeP2LPage decodes a page body of entryCount entries, given the
// revision the page's file belongs to (the reset value for the
// revision-delta chain).
func DecodeP2LPage(raw []byte, entryCount int64, firstRevision int64, file string, baseOffset int64) ([]P2LEntry, error) {
	out := make([]P2LEntry, entryCount)

	if entryCount == 0 {
		return out, nil
	}

	pos := 0

	firstOffset, n, err := varint.ReadUvarint(raw[pos:], file, baseOffset+int64(pos))
	if err != nil {
		return nil, err
	}

	pos += n

	offset := int64(firstOffset) //nolint:gosec
	lastCompound := uint64(0)
	lastRevision := firstRevision

	for i := int64(0); i < entryCount; i++ {
		size, n, err := varint.ReadUvarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		compoundDelta, n, err := varint.ReadVarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		revDelta, n, err := varint.ReadVarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		checksum, n, err := varint.ReadUvarint(raw[pos:], file, baseOffset+int64(pos))
		if err != nil {
			return nil, err
		}

		pos += n

		compound := uint64(int64(lastCompound) + compoundDelta) //nolint:gosec
		lastCompound = compound
		lastRevision += revDelta

		itemNumber, itemType := SplitCompound(compound)

		entrySize := int64(size) //nolint:gosec

		out[i] = P2LEntry{
			Offset:     offset,
			Size:       entrySize,
			ItemNumber: itemNumber,
			Type:       itemType,
			Revision:   lastRevision,
			Checksum:   uint32(checksum), //nolint:gosec
		}

		offset += entrySize
	}

	return out, nil
}
