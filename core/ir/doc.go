// Package ir provides the canonical representation that every Bible source
// encoding is normalized into.
//
// # Core Types
//
//   - Line: one (marker, text) record, e.g. ("c", "1") or ("v", "1 In the beginning")
//   - Book: the ordered lines of one book, identified by its OSIS book code
//   - Builder: the append-only accumulator that produces a Book
//   - Ref / VerseID: structured OSIS references parsed from dotted ids
//
// # Markers
//
// Markers follow USFM naming ("c", "v", "p", "q1", "s1", "mt1", ...).
// Inline annotations are never separate records; they are flattened into the
// text of the line they occur in using paired escapes such as "\f ... \f*".
//
// # Content Addressing
//
// Books are hashed with BLAKE3 over their marker/text sequence, so two
// conversions of the same source can be compared and deduplicated cheaply.
//
// # Example
//
//	b := ir.NewBuilder("Gen")
//	b.AddLine("c", "1")
//	b.AddLine("v", "1")
//	b.AppendToLastLine(" In the beginning")
//	book := b.Finalize()
package ir
