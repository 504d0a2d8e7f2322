package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/richardlehane/mscfb"

	"github.com/soochol/docsum/internal/convert"
)

var (
	errLegacyDOC    = errors.New("older .doc files are not fully supported, convert to .docx")
	errDOCRead      = errors.New("failed to read .doc file")
	errNotCompound  = errors.New("not a structured storage container")
	compoundMagic   = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	structuredLabel = "contains structured streams: "
)

// attempt is one way of extracting a format. Attempts for a format are tried
// in order and the first success wins.
type attempt struct {
	name string
	run  func(ctx context.Context, data []byte) (Fields, error)
}

// firstSuccess runs attempts in order. When all fail it returns the joined
// errors; the last one decides the caller-visible message.
func firstSuccess(ctx context.Context, data []byte, attempts []attempt) (Fields, error) {
	var errs []error
	for _, a := range attempts {
		f, err := runAttempt(ctx, data, a)
		if err == nil {
			return f, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
	}
	return Fields{}, errors.Join(errs...)
}

func runAttempt(ctx context.Context, data []byte, a attempt) (f Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.run(ctx, data)
}

var docAttempts = []attempt{
	{name: "rich text", run: docRichText},
	{name: "structured storage", run: docStructuredStreams},
}

// extractDOC never fails with a raw parser error: exhausting the attempts
// ends in one of the two advisory messages.
func (p *Pipeline) extractDOC(ctx context.Context, data []byte) (Fields, error) {
	f, err := firstSuccess(ctx, data, docAttempts)
	if err == nil {
		return f, nil
	}
	p.logger.Debug("extract: legacy doc attempts exhausted", "err", err)
	if errors.Is(err, errNotCompound) {
		return Fields{}, errLegacyDOC
	}
	return Fields{}, errDOCRead
}

// docRichText reads the stream as a word-processing package and returns its
// raw text, paragraphs separated by blank lines.
func docRichText(_ context.Context, data []byte) (Fields, error) {
	paras, err := docxParagraphs(data, false)
	if err != nil {
		return Fields{}, err
	}
	return Fields{
		FileType:    FormatDOC,
		TextPreview: previewOr(strings.Join(paras, "\n\n"), legacyPreviewLimit),
	}, nil
}

// docStructuredStreams lists the streams of a compound file. This is a
// diagnostic, not text extraction, so no file_type is reported.
func docStructuredStreams(_ context.Context, data []byte) (Fields, error) {
	if !isCompound(data) {
		return Fields{}, errNotCompound
	}
	streams, err := compoundStreams(data)
	if err != nil {
		return Fields{}, err
	}
	return Fields{TextPreview: structuredLabel + fmt.Sprint(streams)}, nil
}

// isCompound reports whether data is a readable structured storage container.
func isCompound(data []byte) (ok bool) {
	if len(data) < 512 || !bytes.HasPrefix(data, compoundMagic) {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_, err := mscfb.New(bytes.NewReader(data))
	return err == nil
}

// compoundStreams returns the path of every stream in the container,
// storages excluded.
func compoundStreams(data []byte) ([]string, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open compound file: %w", err)
	}
	return streamPaths(doc)
}

// entryIterator walks a compound file directory. *mscfb.Reader satisfies it.
type entryIterator interface {
	Next() (*mscfb.File, error)
}

func streamPaths(it entryIterator) ([]string, error) {
	var streams []string
	for {
		entry, err := it.Next()
		if err == io.EOF {
			return streams, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read compound directory: %w", err)
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		parts := append(append([]string{}, entry.Path...), entry.Name)
		streams = append(streams, path.Join(parts...))
	}
}

// extractPPT runs the external text extractor over a legacy presentation.
func (p *Pipeline) extractPPT(ctx context.Context, data []byte) (Fields, error) {
	text, err := p.converter.ExtractText(ctx, bytes.NewReader(data), ".ppt")
	if err != nil {
		return Fields{}, fmt.Errorf("failed to read .ppt file, convert to .pptx: %w", err)
	}
	return Fields{FileType: FormatPPT, TextPreview: previewOr(text, legacyPreviewLimit)}, nil
}

// extractOLE converts a generic structured storage container (in practice a
// legacy presentation) to PDF and reads slides back as pages. Containers that
// fail the validity test get no strategy fields at all.
func (p *Pipeline) extractOLE(ctx context.Context, data []byte) (Fields, error) {
	if !isCompound(data) {
		return Fields{}, nil
	}

	var f Fields
	err := p.converter.ToPDF(ctx, bytes.NewReader(data), ".ppt", func(pdfPath string) error {
		f.FileType = FormatPPT
		file, r, err := pdf.Open(pdfPath)
		if err != nil {
			return fmt.Errorf("read converted PDF: %w", err)
		}
		defer file.Close()

		f.SlideCount = count(r.NumPage())
		f.TextPreview = previewOr(allPagesText(r), olePreviewLimit)
		return nil
	})
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, convert.ErrOutputNotFound):
		return f, err
	default:
		return f, fmt.Errorf("failed to process .ppt file: %w", err)
	}
}
