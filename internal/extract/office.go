package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// docxPreviewParagraphs is how many leading paragraphs form a DOCX preview.
const docxPreviewParagraphs = 5

// extractDOCX reports the body paragraph count and the first five
// paragraphs joined by spaces.
func extractDOCX(data []byte) (Fields, error) {
	paras, err := docxParagraphs(data, true)
	if err != nil {
		return Fields{}, fmt.Errorf("failed to read DOCX: %w", err)
	}

	head := paras
	if len(head) > docxPreviewParagraphs {
		head = head[:docxPreviewParagraphs]
	}
	return Fields{
		FileType:       FormatDOCX,
		ParagraphCount: count(len(paras)),
		TextPreview:    strings.Join(head, " "),
	}, nil
}

// docxParagraphs returns the text of every paragraph in word/document.xml,
// empty ones included. With bodyOnly, paragraphs nested in tables, text
// boxes and similar containers are skipped.
func docxParagraphs(data []byte, bodyOnly bool) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx zip: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return parseDOCXParagraphs(rc, bodyOnly)
	}
	return nil, fmt.Errorf("word/document.xml not found in docx")
}

func parseDOCXParagraphs(r io.Reader, bodyOnly bool) ([]string, error) {
	var (
		paras   []string
		stack   []string
		current strings.Builder
		inPara  int // stack depth of the open paragraph, 0 when none
		inText  bool
	)

	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, name)

			switch {
			case name == "p" && inPara == 0 && (!bodyOnly || parent == "body"):
				inPara = len(stack)
				current.Reset()
			case inPara == 0:
			case name == "t":
				inText = true
			case name == "tab":
				current.WriteByte('\t')
			case name == "br" || name == "cr":
				current.WriteByte('\n')
			}

		case xml.CharData:
			if inPara > 0 && inText {
				current.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if inPara > 0 && len(stack) == inPara {
				paras = append(paras, current.String())
				inPara = 0
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return paras, nil
}

// extractXLSX reports the sheet count and a tab/newline separated preview
// of the cell values of every sheet.
func extractXLSX(data []byte) (Fields, error) {
	xf, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Fields{}, fmt.Errorf("failed to read XLSX: %w", err)
	}
	defer xf.Close()

	sheets := xf.GetSheetList()
	var sb strings.Builder
	for _, sheet := range sheets {
		rows, err := xf.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		if sb.Len() > xlsxPreviewLimit*utf8MaxBytes {
			break
		}
	}
	return Fields{
		FileType:    FormatXLSX,
		SheetCount:  count(len(sheets)),
		TextPreview: previewOr(strings.TrimSpace(sb.String()), xlsxPreviewLimit),
	}, nil
}

// utf8MaxBytes bounds how much text is collected before the character cap applies.
const utf8MaxBytes = 4
