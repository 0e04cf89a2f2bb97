// Package model defines the domain types shared by the scanner, the editor
// renderer and the save pipeline: records and their field descriptors, the
// acting user, and the capability tags that replace type-name probing.
//
// Field capabilities are resolved once, when field metadata is loaded (see
// pkg/schema), so callers never have to inspect concrete type names to know
// whether a field is multi-line, rich text or language aware.
//
// Records are owned by a Store. The core only reads them through the Record
// interface and writes them back through Store.Save; persistence semantics
// (optimistic versions, transactions) stay behind that seam.
package model
