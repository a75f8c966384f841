// Package l2pidx implements the L2P index file builder and reader (spec.md
// §4.4, §4.6): turning one transaction's proto.L2PReader stream into a
// finished, read-only index file, and answering item_offset lookups against
// that file with header/page caching and prefetch.
package l2pidx

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/proto"
	"github.com/go-fsfs/fsfs/section"
	"github.com/go-fsfs/fsfs/spill"
	"github.com/go-fsfs/fsfs/varint"
)

// Builder turns a proto-index log into a finished L2P index file.
type Builder struct {
	itemsPerPage int
	spillDir     string
}

// NewBuilder constructs a Builder. itemsPerPage is P (spec.md §3). spillDir
// selects where the Builder's scratch spill.Writer spills past its
// in-memory threshold; "" uses os.TempDir.
func NewBuilder(itemsPerPage int, spillDir string) *Builder {
	return &Builder{itemsPerPage: itemsPerPage, spillDir: spillDir}
}

// Build consumes every record from r (a single proto-index log covering
// firstRevision and however many subsequent revisions it records) and
// writes a finished L2P index file to outPath: written to a temp file in
// the same directory, then published via rename and made read-only
// (spec.md §4.4 "index files are immutable once published").
func (b *Builder) Build(r *proto.L2PReader, outPath string, firstRevision int64) error {
	pagesPerRev := make([]int64, 0, 16)
	pageTable := make([]section.L2PPageEntry, 0, 64)

	bodies := spill.NewWriter(b.spillDir, spill.DefaultThreshold)
	defer bodies.Close()

	revSlots := make([]int64, 0, b.itemsPerPage)

	flushRevision := func() error {
		n, err := b.emitRevisionPages(revSlots, bodies, &pageTable)
		if err != nil {
			return err
		}

		pagesPerRev = append(pagesPerRev, n)
		revSlots = revSlots[:0]

		return nil
	}

	anyRecords := false

	for {
		rec, ok, err := r.Next()
		if err != nil {
			return err
		}

		if !ok {
			break
		}

		if rec.IsEndOfRevision() {
			if err := flushRevision(); err != nil {
				return err
			}

			anyRecords = false

			continue
		}

		anyRecords = true

		idx := int(rec.ItemIndex) //nolint:gosec
		for len(revSlots) <= idx {
			revSlots = append(revSlots, 0)
		}

		revSlots[idx] = int64(rec.OffsetPlusOne) //nolint:gosec
	}

	// A proto log's final revision has no trailing end-of-revision marker
	// once its writer simply stops (spec.md §4.3: the sentinel separates
	// revisions, it does not have to follow the last one).
	if anyRecords || len(revSlots) > 0 {
		if err := flushRevision(); err != nil {
			return err
		}
	}

	return b.publish(outPath, firstRevision, int64(b.itemsPerPage), pagesPerRev, pageTable, bodies)
}

// emitRevisionPages splits one revision's dense offset-plus-one slots into
// ceil(len/P) pages, encodes each, appends the encoded bytes to bodies, and
// appends one section.L2PPageEntry per page to *pageTable. Returns the page
// count for this revision.
func (b *Builder) emitRevisionPages(slots []int64, bodies *spill.Writer, pageTable *[]section.L2PPageEntry) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	var pageCount int64

	for start := 0; start < len(slots); start += b.itemsPerPage {
		end := start + b.itemsPerPage
		if end > len(slots) {
			end = len(slots)
		}

		page := slots[start:end]
		encoded := section.EncodeL2PPage(page)

		if _, err := bodies.Write(encoded); err != nil {
			return 0, err
		}

		*pageTable = append(*pageTable, section.L2PPageEntry{
			ByteSize:   int64(len(encoded)),
			EntryCount: int64(len(page)),
		})
		pageCount++
	}

	return pageCount, nil
}

func (b *Builder) publish(outPath string, firstRevision, pageSize int64, pagesPerRev []int64, pageTable []section.L2PPageEntry, bodies *spill.Writer) error {
	var header []byte

	header = varint.AppendUvarint(header, uint64(firstRevision)) //nolint:gosec
	header = varint.AppendUvarint(header, uint64(pageSize))       //nolint:gosec
	header = varint.AppendUvarint(header, uint64(len(pagesPerRev))) //nolint:gosec
	header = varint.AppendUvarint(header, uint64(len(pageTable)))   //nolint:gosec

	for _, n := range pagesPerRev {
		header = varint.AppendUvarint(header, uint64(n)) //nolint:gosec
	}

	for _, p := range pageTable {
		header = varint.AppendUvarint(header, uint64(p.ByteSize))   //nolint:gosec
		header = varint.AppendUvarint(header, uint64(p.EntryCount)) //nolint:gosec
	}

	dir := filepath.Dir(outPath)

	tmp, err := os.CreateTemp(dir, filepath.Base(outPath)+".tmp-*")
	if err != nil {
		return errs.IO(dir, -1, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return errs.IO(tmpName, -1, err)
	}

	bodyReader, err := bodies.Reader()
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return err
	}
	defer bodyReader.Close()

	if _, err := io.Copy(tmp, bodyReader); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return errs.IO(tmpName, -1, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return errs.IO(tmpName, -1, err)
	}

	if err := os.Chmod(tmpName, 0o444); err != nil {
		os.Remove(tmpName)

		return errs.IO(tmpName, -1, err)
	}

	if err := os.Rename(tmpName, outPath); err != nil {
		os.Remove(tmpName)

		return errs.IO(outPath, -1, err)
	}

	return nil
}
