package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reports the page count and a preview of the first page.
func extractPDF(data []byte) (Fields, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Fields{}, fmt.Errorf("failed to read PDF: %w", err)
	}

	n := reader.NumPage()
	f := Fields{FileType: FormatPDF, PageCount: count(n), TextPreview: NoTextFound}
	if n > 0 {
		f.TextPreview = previewOr(pageText(reader, 1), pdfPreviewLimit)
	}
	return f, nil
}

// pageText returns the plain text of page i (1-based) as decoded, or "" when
// the page is missing or its content cannot be decoded.
func pageText(r *pdf.Reader, i int) string {
	p := r.Page(i)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// allPagesText joins the page texts that are not blank with newlines.
func allPagesText(r *pdf.Reader) string {
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		text := pageText(r, i)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}
	return sb.String()
}
