package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// extractPPTX reports the slide count and the text of every text shape in
// slide order. The shape list, not the character count, is capped at
// pptxShapeLimit entries before joining.
func extractPPTX(data []byte) (Fields, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Fields{}, fmt.Errorf("failed to read PPTX: open zip: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	slides, err := slideOrder(files)
	if err != nil {
		return Fields{}, fmt.Errorf("failed to read PPTX: %w", err)
	}

	var shapes []string
	for _, name := range slides {
		texts, err := readXMLPart(files[name], slideShapeTexts)
		if err != nil {
			return Fields{}, fmt.Errorf("failed to read PPTX: %s: %w", name, err)
		}
		shapes = append(shapes, texts...)
	}
	if len(shapes) > pptxShapeLimit {
		shapes = shapes[:pptxShapeLimit]
	}

	return Fields{
		FileType:    FormatPPTX,
		SlideCount:  count(len(slides)),
		TextPreview: strings.Join(shapes, " "),
	}, nil
}

const relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// slideOrder resolves the presentation's slide id list through its
// relationships. Packages without those parts fall back to numeric part order.
func slideOrder(files map[string]*zip.File) ([]string, error) {
	pres, ok := files["ppt/presentation.xml"]
	if !ok {
		return nil, fmt.Errorf("ppt/presentation.xml not found in pptx")
	}
	ids, err := readXMLPart(pres, slideRelIDs)
	if err != nil {
		return nil, fmt.Errorf("presentation.xml: %w", err)
	}

	var targets map[string]string
	if rels, ok := files["ppt/_rels/presentation.xml.rels"]; ok {
		if targets, err = readXMLPart(rels, relationshipTargets); err != nil {
			return nil, fmt.Errorf("presentation.xml.rels: %w", err)
		}
	}

	var order []string
	for _, id := range ids {
		target, ok := targets[id]
		if !ok {
			continue
		}
		name := path.Join("ppt", target)
		if strings.HasPrefix(target, "/") {
			name = strings.TrimPrefix(target, "/")
		}
		if _, ok := files[name]; ok {
			order = append(order, name)
		}
	}
	if len(order) > 0 {
		return order, nil
	}

	type numbered struct {
		name string
		n    int
	}
	var parts []numbered
	for name := range files {
		if m := slidePartRe.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			parts = append(parts, numbered{name, n})
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].n < parts[j].n })
	for _, p := range parts {
		order = append(order, p.name)
	}
	return order, nil
}

func readXMLPart[T any](f *zip.File, parse func(*xml.Decoder) (T, error)) (T, error) {
	var zero T
	if f == nil {
		return zero, fmt.Errorf("part missing")
	}
	rc, err := f.Open()
	if err != nil {
		return zero, err
	}
	defer rc.Close()
	return parse(xml.NewDecoder(rc))
}

// slideRelIDs returns the r:id of every p:sldId, in list order.
func slideRelIDs(d *xml.Decoder) ([]string, error) {
	var ids []string
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sldId" {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Local == "id" && a.Name.Space == relNamespace {
				ids = append(ids, a.Value)
			}
		}
	}
}

func relationshipTargets(d *xml.Decoder) (map[string]string, error) {
	targets := map[string]string{}
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return targets, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" {
			targets[id] = target
		}
	}
}

// slideShapeTexts returns the text of each p:sp directly under the slide's
// shape tree. Pictures, connectors, tables and groups carry no text of their
// own and are skipped. A shape's paragraphs are joined with newlines.
func slideShapeTexts(d *xml.Decoder) ([]string, error) {
	var (
		texts      []string
		paras      []string
		para       strings.Builder
		depth      int
		treeDepth  int // depth of p:spTree, 0 until seen
		shapeDepth int // depth of the open p:sp, 0 when none
		inPara     bool
		inText     bool
	)

	for {
		tok, err := d.Token()
		if err == io.EOF {
			return texts, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			name := t.Name.Local
			switch {
			case name == "spTree" && treeDepth == 0:
				treeDepth = depth
			case name == "sp" && treeDepth > 0 && depth == treeDepth+1:
				shapeDepth = depth
				paras = paras[:0]
			case shapeDepth == 0:
			case name == "p":
				inPara = true
				para.Reset()
			case name == "t":
				inText = true
			case name == "br" && inPara:
				para.WriteByte('\n')
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			name := t.Name.Local
			switch {
			case shapeDepth > 0 && depth == shapeDepth:
				texts = append(texts, strings.Join(paras, "\n"))
				shapeDepth = 0
			case name == "t":
				inText = false
			case name == "p" && inPara:
				paras = append(paras, para.String())
				inPara = false
			case depth == treeDepth:
				treeDepth = -1
			}
			depth--
		}
	}
}
