package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReaderSettings_Equal(t *testing.T) {
	base := ReaderSettings{FontSize: 16, LineHeight: 1.5, Margins: 24, Columns: 1}

	tests := []struct {
		name  string
		other ReaderSettings
		want  bool
	}{
		{"identical", ReaderSettings{FontSize: 16, LineHeight: 1.5, Margins: 24, Columns: 1}, true},
		{"font size differs", ReaderSettings{FontSize: 18, LineHeight: 1.5, Margins: 24, Columns: 1}, false},
		{"line height differs", ReaderSettings{FontSize: 16, LineHeight: 1.6, Margins: 24, Columns: 1}, false},
		{"margins differ", ReaderSettings{FontSize: 16, LineHeight: 1.5, Margins: 32, Columns: 1}, false},
		{"columns differ", ReaderSettings{FontSize: 16, LineHeight: 1.5, Margins: 24, Columns: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
		})
	}
}

func TestDisplayMode_Valid(t *testing.T) {
	assert.True(t, ModePaged.Valid())
	assert.True(t, ModeContinuous.Valid())
	assert.False(t, DisplayMode("vertical").Valid())
}
