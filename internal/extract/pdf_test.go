package extract

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty bytes", data: nil},
		{name: "not a PDF", data: []byte("just some plain text, no PDF header")},
		{name: "truncated header", data: []byte("%PDF-1.4\n")},
		{name: "garbage after header", data: append([]byte("%PDF-1.7\n"), make([]byte, 256)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Text(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExtraction)
		})
	}
}

func TestText_MinimalDocument(t *testing.T) {
	// A minimal single-page PDF with one text object.
	data := minimalPDF(t, "Hello corpusd")

	text, err := Text(data)
	require.NoError(t, err)
	assert.Contains(t, text, "Hello corpusd")
}

// minimalPDF builds the smallest well-formed PDF carrying the given text.
func minimalPDF(t *testing.T, content string) []byte {
	t.Helper()

	stream := "BT /F1 12 Tf 72 720 Td (" + content + ") Tj ET"
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n",
		"4 0 obj\n<< /Length " + itoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream\nendobj\n",
		"5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n",
	}

	var buf []byte
	buf = append(buf, []byte("%PDF-1.4\n")...)
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = len(buf)
		buf = append(buf, []byte(obj)...)
	}

	xrefStart := len(buf)
	xref := "xref\n0 " + itoa(len(objects)+1) + "\n0000000000 65535 f \n"
	for _, off := range offsets {
		xref += pad10(off) + " 00000 n \n"
	}
	buf = append(buf, []byte(xref)...)
	buf = append(buf, []byte("trailer\n<< /Size "+itoa(len(objects)+1)+" /Root 1 0 R >>\nstartxref\n"+itoa(xrefStart)+"\n%%EOF\n")...)
	return buf
}

func itoa(n int) string { return strconv.Itoa(n) }

func pad10(n int) string { return fmt.Sprintf("%010d", n) }
