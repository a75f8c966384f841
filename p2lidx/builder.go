// Package p2lidx implements the P2L index file builder and reader (spec.md
// §4.5, §4.7): turning one transaction's proto.P2LReader stream into a
// finished index file, and answering p2l_index_lookup / p2l_entry_lookup /
// p2l_get_max_offset against it.
package p2lidx

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-fsfs/fsfs/errs"
	"github.com/go-fsfs/fsfs/proto"
	"github.com/go-fsfs/fsfs/section"
	"github.com/go-fsfs/fsfs/spill"
	"github.com/go-fsfs/fsfs/varint"
)

// Builder turns a P2L proto-index log into a finished index file.
type Builder struct {
	clusterSize int64
	spillDir    string
}

// NewBuilder constructs a Builder. clusterSize is Q (spec.md §3).
func NewBuilder(clusterSize int64, spillDir string) *Builder {
	return &Builder{clusterSize: clusterSize, spillDir: spillDir}
}

// Build consumes every record from r, rewrites INVALID-revision entries to
// finalizedRevision (spec.md §4.5 step 3), groups them into Q-byte cluster
// pages (step 1), appends a synthetic padding entry to round the file out
// to the next page boundary (step 4), and publishes outPath the same way
// l2pidx.Builder does: temp file, rename, read-only.
func (b *Builder) Build(r *proto.P2LReader, outPath string, firstRevision, finalizedRevision int64) error {
	entries, err := b.collect(r, finalizedRevision)
	if err != nil {
		return err
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })

	bodies := spill.NewWriter(b.spillDir, spill.DefaultThreshold)
	defer bodies.Close()

	pageByteSizes := make([]int64, 0, 16)

	var page []section.P2LEntry

	var fileSize int64

	// emitPage always writes the current page (even empty) and starts a new
	// one; closePage is the same but skips writing when there is nothing
	// pending, so callers that merely "flush if dirty" don't emit spurious
	// zero-entry pages.
	emitPage := func() error {
		encoded := section.EncodeP2LPage(page, firstRevision)
		if _, err := bodies.Write(encoded); err != nil {
			return err
		}

		pageByteSizes = append(pageByteSizes, int64(len(encoded)))
		page = page[:0]

		return nil
	}

	closePage := func() error {
		if len(page) == 0 {
			return nil
		}

		return emitPage()
	}

	currentCluster := int64(0)

	for _, e := range entries {
		startCluster := e.Offset / b.clusterSize
		endCluster := (e.Offset + e.Size - 1) / b.clusterSize

		if len(page) > 0 && startCluster > currentCluster {
			if err := closePage(); err != nil {
				return err
			}
		}

		currentCluster = startCluster
		page = append(page, e)
		fileSize = e.Offset + e.Size

		// An entry whose range crosses N cluster boundaries closes N pages
		// in a row, one per boundary: the first carries the entry itself,
		// the rest are empty placeholders for the clusters it merely
		// passes through, so page index and cluster index stay in lockstep
		// (spec.md §4.5 step 1, §8 boundary behavior).
		for endCluster > currentCluster {
			if err := emitPage(); err != nil {
				return err
			}

			currentCluster++
		}
	}

	// Synthetic type-0 padding entry covering the tail of the last page up
	// to the next page boundary (spec.md §4.5 step 4).
	paddedFileSize := alignUp(fileSize, b.clusterSize)
	if paddedFileSize > fileSize {
		page = append(page, section.P2LEntry{
			Offset:   fileSize,
			Size:     paddedFileSize - fileSize,
			Type:     section.ItemTypePadding,
			Revision: firstRevision,
		})
		fileSize = paddedFileSize
	}

	if err := closePage(); err != nil {
		return err
	}

	return b.publish(outPath, firstRevision, fileSize, pageByteSizes, bodies)
}

func (b *Builder) collect(r *proto.P2LReader, finalizedRevision int64) ([]section.P2LEntry, error) {
	var out []section.P2LEntry

	for {
		e, ok, err := r.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		if e.Revision == proto.InvalidRevision {
			e.Revision = finalizedRevision
		}

		out = append(out, e)
	}

	return out, nil
}

func alignUp(v, block int64) int64 {
	if block <= 0 || v%block == 0 {
		return v
	}

	return (v/block + 1) * block
}

func (b *Builder) publish(outPath string, firstRevision, fileSize int64, pageByteSizes []int64, bodies *spill.Writer) error {
	var header []byte

	header = varint.AppendUvarint(header, uint64(firstRevision)) //nolint:gosec
	header = varint.AppendUvarint(header, uint64(fileSize))       //nolint:gosec
	header = varint.AppendUvarint(header, uint64(b.clusterSize))  //nolint:gosec
	header = varint.AppendUvarint(header, uint64(len(pageByteSizes))) //nolint:gosec

	for _, n := range pageByteSizes {
		header = varint.AppendUvarint(header, uint64(n)) //nolint:gosec
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
