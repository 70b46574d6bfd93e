package domain

// ReaderSettings contains the layout-affecting reader configuration.
// Any change to any field reflows the content and invalidates exact
// page-index compatibility of a previously saved position.
type ReaderSettings struct {
	FontSize   float64 `json:"font_size"`
	LineHeight float64 `json:"line_height"`
	Margins    int     `json:"margins,omitempty"`
	Columns    int     `json:"columns,omitempty"`
}

// DefaultReaderSettings returns sensible defaults for a new reader.
func DefaultReaderSettings() ReaderSettings {
	return ReaderSettings{
		FontSize:   16,
		LineHeight: 1.5,
		Margins:    24,
		Columns:    1,
	}
}

// Equal reports whether two settings snapshots produce identical layout.
// Field-level equality is the compatibility contract for restored positions.
func (s ReaderSettings) Equal(other ReaderSettings) bool {
	return s.FontSize == other.FontSize &&
		s.LineHeight == other.LineHeight &&
		s.Margins == other.Margins &&
		s.Columns == other.Columns
}

// Valid reports whether the settings are usable for layout.
func (s ReaderSettings) Valid() bool {
	return s.FontSize > 0 && s.LineHeight > 0 && s.Margins >= 0 && s.Columns >= 0
}
