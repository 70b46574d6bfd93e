package domain

// DisplayMode controls how the rendering surface presents content.
type DisplayMode string

const (
	// ModePaged splits content into discrete, viewport-sized horizontal pages.
	ModePaged DisplayMode = "paged"
	// ModeContinuous scrolls content freely; pagination collapses to one page.
	ModeContinuous DisplayMode = "continuous"
)

// Valid reports whether the mode is one of the known display modes.
func (m DisplayMode) Valid() bool {
	return m == ModePaged || m == ModeContinuous
}

// Continuous reports whether the mode is continuous scrolling.
func (m DisplayMode) Continuous() bool {
	return m == ModeContinuous
}
