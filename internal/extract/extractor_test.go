package extract_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soochol/docsum/internal/convert"
	"github.com/soochol/docsum/internal/extract"
	"github.com/soochol/docsum/internal/extract/extracttest"
)

func newPipeline(t *testing.T) *extract.Pipeline {
	t.Helper()
	conv := convert.New(convert.Config{ScratchDir: t.TempDir()})
	return extract.New(extract.Config{Converter: conv})
}

func process(t *testing.T, p *extract.Pipeline, name string, data []byte) extract.Result {
	t.Helper()
	return p.Process(context.Background(), extract.Document{Name: name, Content: bytes.NewReader(data)})
}

func TestProcess_PDF(t *testing.T) {
	p := newPipeline(t)
	res := process(t, p, "report.pdf", extracttest.PDF("Hello from page one", "Second page"))

	assert.Equal(t, "report.pdf", res.FileName)
	assert.Equal(t, extract.MIMEPDF, res.MimeType)
	assert.Empty(t, res.Error)
	assert.Equal(t, extract.FormatPDF, res.FileType)
	require.NotNil(t, res.PageCount)
	assert.Equal(t, 2, *res.PageCount)
	assert.Contains(t, res.TextPreview, "Hello")
	assert.NotContains(t, res.TextPreview, "Second")
}

func TestProcess_PDFWithoutPages(t *testing.T) {
	res := process(t, newPipeline(t), "empty.pdf", extracttest.PDF())

	assert.Empty(t, res.Error)
	require.NotNil(t, res.PageCount)
	assert.Equal(t, 0, *res.PageCount)
	assert.Equal(t, extract.NoTextFound, res.TextPreview)
}

func TestProcess_PDFFirstPageWithoutText(t *testing.T) {
	res := process(t, newPipeline(t), "blank.pdf", extracttest.PDF("", "later text"))

	require.NotNil(t, res.PageCount)
	assert.Equal(t, 2, *res.PageCount)
	assert.Equal(t, extract.NoTextFound, res.TextPreview)
}

func TestProcess_PDFPreviewIsCapped(t *testing.T) {
	long := strings.Repeat("abcdefghij", 400)
	res := process(t, newPipeline(t), "long.pdf", extracttest.PDF(long))

	assert.Empty(t, res.Error)
	assert.LessOrEqual(t, len([]rune(res.TextPreview)), 3000)
	assert.True(t, strings.HasPrefix(long, res.TextPreview), "preview should be a prefix of the page text")
}

func TestProcess_PDFPreviewKeepsLeadingWhitespace(t *testing.T) {
	res := process(t, newPipeline(t), "indented.pdf", extracttest.PDF("   indented first line"))

	assert.Empty(t, res.Error)
	assert.True(t, strings.HasPrefix(res.TextPreview, "   indented"), "preview %q should keep the page's leading spaces", res.TextPreview)
}

func TestProcess_MalformedPDF(t *testing.T) {
	res := process(t, newPipeline(t), "broken.pdf", []byte("%PDF-1.4\nthis is not a real pdf\n"))

	assert.Equal(t, "broken.pdf", res.FileName)
	assert.Equal(t, extract.MIMEPDF, res.MimeType)
	assert.Contains(t, res.Error, "failed to read PDF")
	assert.Equal(t, "failed", res.Status())
}

func TestProcess_DOCX(t *testing.T) {
	res := process(t, newPipeline(t), "memo.docx", extracttest.DOCX("A", "B", "C", "D", "E", "F", "G"))

	assert.Empty(t, res.Error)
	assert.Equal(t, extract.MIMEDOCX, res.MimeType)
	assert.Equal(t, extract.FormatDOCX, res.FileType)
	require.NotNil(t, res.ParagraphCount)
	assert.Equal(t, 7, *res.ParagraphCount)
	assert.Equal(t, "A B C D E", res.TextPreview)
}

func TestProcess_PPTX(t *testing.T) {
	data := extracttest.PPTX(
		[]string{"Quarterly review", "Revenue\nCosts"},
		[]string{"Questions"},
	)
	res := process(t, newPipeline(t), "deck.pptx", data)

	assert.Empty(t, res.Error)
	assert.Equal(t, extract.MIMEPPTX, res.MimeType)
	assert.Equal(t, extract.FormatPPTX, res.FileType)
	require.NotNil(t, res.SlideCount)
	assert.Equal(t, 2, *res.SlideCount)
	assert.Equal(t, "Quarterly review Revenue\nCosts Questions", res.TextPreview)
}

func TestProcess_PPTXPreviewIsNotCharacterCapped(t *testing.T) {
	shape := strings.Repeat("s", 5000)
	res := process(t, newPipeline(t), "long.pptx", extracttest.PPTX([]string{shape, shape, shape}))

	assert.Empty(t, res.Error)
	assert.Equal(t, extract.MIMEPPTX, res.MimeType)
	assert.Len(t, []rune(res.TextPreview), 3*5000+2)
	assert.Equal(t, strings.Join([]string{shape, shape, shape}, " "), res.TextPreview)
}

func TestProcess_DOCXPreviewIsBoundByParagraphs(t *testing.T) {
	para := strings.Repeat("p", 3000)
	res := process(t, newPipeline(t), "long.docx", extracttest.DOCX(para, para, para, para, para, "tail"))

	assert.Empty(t, res.Error)
	require.NotNil(t, res.ParagraphCount)
	assert.Equal(t, 6, *res.ParagraphCount)
	assert.Len(t, []rune(res.TextPreview), 5*3000+4)
	assert.NotContains(t, res.TextPreview, "tail")
}

func TestProcess_UnsupportedKeepsIdentityOnly(t *testing.T) {
	res := process(t, newPipeline(t), "notes.txt", []byte("just some plain text\n"))

	assert.Equal(t, "notes.txt", res.FileName)
	assert.Equal(t, "text/plain", res.MimeType)
	assert.Equal(t, extract.Fields{}, res.Fields)
	assert.Equal(t, "success", res.Status())
}

func TestProcess_RestoresStreamPosition(t *testing.T) {
	p := newPipeline(t)
	for name, data := range map[string][]byte{
		"a.pdf":  extracttest.PDF("x"),
		"a.docx": extracttest.DOCX("x"),
		"a.txt":  []byte("plain"),
	} {
		r := bytes.NewReader(data)
		r.Seek(3, io.SeekStart)

		p.Process(context.Background(), extract.Document{Name: name, Content: r})

		pos, err := r.Seek(0, io.SeekCurrent)
		require.NoError(t, err)
		assert.Zero(t, pos, name)
	}
}

func TestProcess_RejectsOversizedInput(t *testing.T) {
	conv := convert.New(convert.Config{ScratchDir: t.TempDir()})
	p := extract.New(extract.Config{Converter: conv, MaxFileSize: 64})

	res := process(t, p, "big.pdf", extracttest.PDF("too much"))

	assert.Equal(t, extract.MIMEPDF, res.MimeType)
	assert.Contains(t, res.Error, "file too large")
	assert.Nil(t, res.PageCount)
}

func TestProcess_NilContent(t *testing.T) {
	res := newPipeline(t).Process(context.Background(), extract.Document{Name: "ghost"})

	assert.Equal(t, "ghost", res.FileName)
	assert.NotEmpty(t, res.Error)
}

func TestProcessBatch_IsolatesFailures(t *testing.T) {
	docs := []extract.Document{
		{Name: "one.docx", Content: bytes.NewReader(extracttest.DOCX("first"))},
		{Name: "two.pdf", Content: bytes.NewReader([]byte("%PDF-1.7\ncorrupt"))},
		{Name: "three.pptx", Content: bytes.NewReader(extracttest.PPTX([]string{"third"}))},
	}

	results := newPipeline(t).ProcessBatch(context.Background(), docs)

	require.Len(t, results, 3)
	assert.Equal(t, "one.docx", results[0].FileName)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, "first", results[0].TextPreview)

	assert.Equal(t, "two.pdf", results[1].FileName)
	assert.NotEmpty(t, results[1].Error)

	assert.Equal(t, "three.pptx", results[2].FileName)
	assert.Empty(t, results[2].Error)
	assert.Equal(t, "third", results[2].TextPreview)
}

func TestProcessBatch_Empty(t *testing.T) {
	assert.Empty(t, newPipeline(t).ProcessBatch(context.Background(), nil))
}

func TestDetect(t *testing.T) {
	p := newPipeline(t)
	det := p.Detect(bytes.NewReader(extracttest.PDF("x")))
	assert.Equal(t, extract.Detection{MIME: extract.MIMEPDF, Strategy: extract.StrategyPDF}, det)

	det = p.Detect(bytes.NewReader(nil))
	assert.Equal(t, extract.StrategyUnsupported, det.Strategy)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		mime string
		want extract.Strategy
	}{
		{extract.MIMEPDF, extract.StrategyPDF},
		{extract.MIMEDOCX, extract.StrategyDOCX},
		{extract.MIMEDOC, extract.StrategyDOC},
		{extract.MIMEPPTX, extract.StrategyPPTX},
		{extract.MIMEPPT, extract.StrategyPPT},
		{extract.MIMEOLEStorage, extract.StrategyOLE},
		{extract.MIMEXLSX, extract.StrategyXLSX},
		{"text/plain", extract.StrategyUnsupported},
		{"application/PDF", extract.StrategyUnsupported},
		{"", extract.StrategyUnsupported},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extract.Route(tt.mime), tt.mime)
	}
}

func TestSupportedMIMETypes(t *testing.T) {
	got := extract.SupportedMIMETypes()
	assert.Len(t, got, 7)
	assert.IsIncreasing(t, got)
	assert.Contains(t, got, extract.MIMEOLEStorage)
}
