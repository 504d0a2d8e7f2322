package extract

import "io"

// Format is the concrete document format reported as file_type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatDOC  Format = "doc"
	FormatPPTX Format = "pptx"
	FormatPPT  Format = "ppt"
	FormatXLSX Format = "xlsx"
)

// Strategy identifies the extraction path chosen for a MIME type.
type Strategy string

const (
	StrategyPDF         Strategy = "pdf"
	StrategyDOCX        Strategy = "docx"
	StrategyDOC         Strategy = "doc"
	StrategyPPTX        Strategy = "pptx"
	StrategyPPT         Strategy = "ppt"
	StrategyOLE         Strategy = "ole-storage"
	StrategyXLSX        Strategy = "xlsx"
	StrategyUnsupported Strategy = "unsupported"
)

// NoTextFound is the preview used when a document yields no text.
const NoTextFound = "No text found"

// Preview limits, in characters.
const (
	pdfPreviewLimit    = 3000
	legacyPreviewLimit = 5000
	pptxShapeLimit     = 5000
	xlsxPreviewLimit   = 5000
	olePreviewLimit    = 10000
)

// Document is one uploaded file. The pipeline reads Content but leaves its
// position at the start when it returns.
type Document struct {
	Name    string
	Content io.ReadSeeker
}

// Detection is the sniffed MIME type and the strategy it routes to.
type Detection struct {
	MIME     string   `json:"mime_type"`
	Strategy Strategy `json:"strategy"`
}

// Fields are the strategy-specific attributes of a Result.
type Fields struct {
	FileType       Format `json:"file_type,omitempty"`
	PageCount      *int   `json:"page_count,omitempty"`
	ParagraphCount *int   `json:"paragraph_count,omitempty"`
	SlideCount     *int   `json:"slide_count,omitempty"`
	SheetCount     *int   `json:"sheet_count,omitempty"`
	TextPreview    string `json:"text_preview,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Result summarizes one document. FileName and MimeType are always set.
type Result struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Fields
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool { return r.Error != "" }

// Status is "failed" when the result carries an error and "success" otherwise.
func (r Result) Status() string {
	if r.Failed() {
		return "failed"
	}
	return "success"
}

func count(n int) *int { return &n }
