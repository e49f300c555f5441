package record

type ColumnType uint8

const (
	ColInteger ColumnType = iota + 1 // int32, 4-byte LE
	ColFloat                         // float64, 8-byte LE IEEE-754
	ColBool                          // 1 byte, 0 or 1
	ColText                          // u32 LE length prefix + UTF-8 bytes
	ColVarChar                       // Text encoding, MaxLen enforced on encode
)

type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nullable bool       `json:"nullable"`

	// MaxLen bounds the byte length of ColVarChar values. Ignored for
	// other types.
	MaxLen int `json:"max_len,omitempty"`
}

// Schema is the ordered column list the codec interprets rows against.
// It is owned by the catalog layer; the codec only consumes it.
type Schema struct {
	Cols []Column `json:"cols"`
}

func (s Schema) NumCols() int { return len(s.Cols) }

// ColIndex returns the position of the named column, or -1.
func (s Schema) ColIndex(name string) int {
	for i, c := range s.Cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}
