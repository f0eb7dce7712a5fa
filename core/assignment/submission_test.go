package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadBaseName(t *testing.T) {
	tests := map[string]string{
		"essay.pdf":            "essay.pdf",
		"docs/essay.pdf":       "essay.pdf",
		`C:\Users\bob\hw.docx`: "hw.docx",
		`..\..\x.exe`:          "x.exe",
		"../../etc/passwd":     "passwd",
		`my "final" draft.pdf`: `my "final" draft.pdf`,
	}
	for name, want := range tests {
		assert.Equal(t, want, uploadBaseName(name), name)
	}
}
