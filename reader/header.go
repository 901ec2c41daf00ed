package reader

import "golang.org/x/text/cases"

// Key addresses a header column. Exact and case-folded keys live in disjoint
// namespaces: a folded lookup never matches an exact entry and vice versa.
type Key struct {
	Name string
	Fold bool
}

// ExactKey returns a key matching name byte for byte.
func ExactKey(name string) Key {
	return Key{Name: name}
}

// FoldKey returns a key matching name regardless of letter case.
func FoldKey(name string) Key {
	return Key{Name: FoldName(name), Fold: true}
}

// FoldName returns the canonical case-folded form of name.
func FoldName(name string) string {
	// Casers are stateful; one per call keeps Header values shareable.
	return cases.Fold().String(name)
}

// Header is an ordered list of column names with a lookup index.
type Header struct {
	names []string
	index map[Key]int
}

// NewHeader builds a header from column names. When names repeat, the first
// occurrence wins, separately for exact and folded lookups.
func NewHeader(names []string) *Header {
	h := &Header{
		names: append([]string(nil), names...),
		index: make(map[Key]int, len(names)*2),
	}
	for i, n := range h.names {
		if _, dup := h.index[ExactKey(n)]; !dup {
			h.index[ExactKey(n)] = i
		}
		if _, dup := h.index[FoldKey(n)]; !dup {
			h.index[FoldKey(n)] = i
		}
	}
	return h
}

// Names returns a copy of the column names.
func (h *Header) Names() []string {
	return append([]string(nil), h.names...)
}

// Len returns the number of columns.
func (h *Header) Len() int {
	return len(h.names)
}

// Position returns the column index for key.
func (h *Header) Position(key Key) (int, bool) {
	i, ok := h.index[key]
	return i, ok
}

// HeaderedRow is a data row addressable by column name.
type HeaderedRow struct {
	Line  int // Physical line the row started on (1-based)
	Width int // Number of values the tokenizer produced

	header *Header
	cells  []Cell // Exactly header.Len() entries
}

// NewHeaderedRow zips a header with raw values. Missing values become null,
// surplus values are dropped.
func NewHeaderedRow(h *Header, raw RawRow) HeaderedRow {
	cells := make([]Cell, h.Len())
	copy(cells, raw.Cells)
	return HeaderedRow{
		Line:   raw.Line,
		Width:  len(raw.Cells),
		header: h,
		cells:  cells,
	}
}

// Header returns the header the row was bound with.
func (r HeaderedRow) Header() *Header {
	return r.header
}

// Lookup returns the value addressed by key. ok is false when the header has
// no such column.
func (r HeaderedRow) Lookup(key Key) (Cell, bool) {
	if r.header == nil {
		return Null, false
	}
	i, ok := r.header.Position(key)
	if !ok {
		return Null, false
	}
	return r.cells[i], true
}

// Get returns the value of the column with exactly this name.
func (r HeaderedRow) Get(name string) (Cell, bool) {
	return r.Lookup(ExactKey(name))
}

// Map returns the row as a name to value map.
func (r HeaderedRow) Map() map[string]Cell {
	out := make(map[string]Cell, len(r.cells))
	if r.header == nil {
		return out
	}
	for i, n := range r.header.names {
		if _, seen := out[n]; !seen {
			out[n] = r.cells[i]
		}
	}
	return out
}
