// Package section defines the low-level binary structures of the L2P and
// P2L index files: headers, page tables, and page-body entries. It handles
// the byte-level layout spec.md §6 specifies and the partial-getters that
// let a cached header be queried field-by-field without a full decode
// (spec.md §4.2, "structural serializer").
//
// # L2P index file
//
//	┌───────────────────────────────────────────────────────────┐
//	│ varint first_revision                                     │
//	│ varint page_size (P)                                      │
//	│ varint revision_count                                     │
//	│ varint total_page_count                                   │
//	├───────────────────────────────────────────────────────────┤
//	│ varint pages_in_rev[revision_count]                       │
//	├───────────────────────────────────────────────────────────┤
//	│ (varint page_byte_size, varint entries_in_page)[total_page_count] │
//	├───────────────────────────────────────────────────────────┤
//	│ page bodies, concatenated                                 │
//	└───────────────────────────────────────────────────────────┘
//
// Everything above the page bodies is the "header section": small,
// proportional to revision/page count rather than item count, and what
// pagecache's L2P header cache stores verbatim, as the []byte
// ReadRawL2PHeader returns.
//
// # P2L index file
//
//	┌───────────────────────────────────────────────────────────┐
//	│ varint first_revision                                     │
//	│ varint file_size                                          │
//	│ varint page_size (Q)                                      │
//	│ varint page_count                                         │
//	├───────────────────────────────────────────────────────────┤
//	│ varint page_byte_size[page_count]                         │
//	├───────────────────────────────────────────────────────────┤
//	│ page bodies, concatenated                                 │
//	└───────────────────────────────────────────────────────────┘
package section
