package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidAudioFormat(t *testing.T) {
	for _, name := range []string{"a.mp3", "b.WAV", "c.m4a", "d.webm", "e.opus"} {
		assert.True(t, ValidAudioFormat(name), "name %q", name)
	}
	for _, name := range []string{"a.pdf", "b.txt", "noext", "archive.zip"} {
		assert.False(t, ValidAudioFormat(name), "name %q", name)
	}
}

func TestValidDocumentFormat(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.txt"} {
		assert.True(t, ValidDocumentFormat(name), "name %q", name)
	}
	for _, name := range []string{"a.mp3", "b.doc", "c.odt", "noext"} {
		assert.False(t, ValidDocumentFormat(name), "name %q", name)
	}
}
