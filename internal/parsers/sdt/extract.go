// Package sdt extracts the values of named content controls (w:sdt structured
// document tags) from WordprocessingML markup.
package sdt

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/kosarica/intake-service/internal/ingestion/docx"
)

// Label is a lowercased content control name (alias, or tag when no alias is set)
type Label string

// RawFieldMap maps a control label to the raw text found inside the control
type RawFieldMap map[Label]string

// Region is one content control found in document order
type Region struct {
	Label Label  `json:"label"`
	Alias string `json:"alias,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Text  string `json:"text"`
}

// Result holds the regions of a document and the field map built from them
type Result struct {
	Fields  RawFieldMap
	Regions []Region
	// Err is set when the markup was malformed; Fields then holds the regions
	// completed before the error
	Err error
}

// Labels returns the distinct labels in the order they first appear
func (r *Result) Labels() []Label {
	seen := make(map[Label]bool, len(r.Regions))
	labels := make([]Label, 0, len(r.Regions))
	for _, region := range r.Regions {
		if !seen[region.Label] {
			seen[region.Label] = true
			labels = append(labels, region.Label)
		}
	}
	return labels
}

// Extract scans markup and returns the control field map. Malformed markup is
// not an error: the regions closed before the problem are kept.
func Extract(markup string) RawFieldMap {
	return Scan(markup).Fields
}

// ExtractDocument scans every part of a document in order. A label found in a
// later part replaces the same label from an earlier one.
func ExtractDocument(doc *docx.Document) *Result {
	out := &Result{Fields: RawFieldMap{}}
	for _, part := range doc.Parts {
		res := Scan(part.XML)
		for label, text := range res.Fields {
			out.Fields[label] = text
		}
		out.Regions = append(out.Regions, res.Regions...)
		if res.Err != nil && out.Err == nil {
			out.Err = res.Err
		}
	}
	return out
}

type openRegion struct {
	alias     string
	tag       string
	inPr      bool
	inContent bool
	text      strings.Builder
}

// Scan walks the markup once and collects every content control
func Scan(markup string) *Result {
	result := &Result{Fields: RawFieldMap{}}

	decoder := xml.NewDecoder(strings.NewReader(markup))
	decoder.Strict = false
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil // parts are decoded to UTF-8 by the container reader
	}

	var stack []*openRegion
	var inText bool
	var runDepth int

	appendText := func(s string) {
		for _, r := range stack {
			if r.inContent {
				r.text.WriteString(s)
			}
		}
	}
	top := func() *openRegion {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Err = err
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sdt":
				stack = append(stack, &openRegion{})
			case "sdtPr":
				if r := top(); r != nil {
					r.inPr = true
				}
			case "alias":
				if r := top(); r != nil && r.inPr && r.alias == "" {
					r.alias = strings.TrimSpace(attrValue(t, "val"))
				}
			case "tag":
				if r := top(); r != nil && r.inPr && r.tag == "" {
					r.tag = strings.TrimSpace(attrValue(t, "val"))
				}
			case "sdtContent":
				if r := top(); r != nil {
					r.inContent = true
				}
			case "r":
				runDepth++
			case "t":
				inText = true
			case "br", "cr":
				if runDepth > 0 {
					appendText("\n")
				}
			case "tab":
				// w:tab also defines tab stops inside paragraph properties
				if runDepth > 0 {
					appendText("\t")
				}
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "sdt":
				r := top()
				if r == nil {
					continue
				}
				stack = stack[:len(stack)-1]
				result.add(r)
			case "sdtPr":
				if r := top(); r != nil {
					r.inPr = false
				}
			case "sdtContent":
				if r := top(); r != nil {
					r.inContent = false
				}
			case "r":
				if runDepth > 0 {
					runDepth--
				}
			case "t":
				inText = false
			}

		case xml.CharData:
			if inText {
				appendText(string(t))
			}
		}
	}

	return result
}

// add stores a closed region; regions without alias or tag are skipped
func (res *Result) add(r *openRegion) {
	name := r.alias
	if name == "" {
		name = r.tag
	}
	if name == "" {
		return
	}

	label := Label(strings.ToLower(name))
	text := r.text.String()

	res.Fields[label] = text
	res.Regions = append(res.Regions, Region{
		Label: label,
		Alias: r.alias,
		Tag:   r.tag,
		Text:  text,
	})
}

func attrValue(start xml.StartElement, local string) string {
	for _, attr := range start.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}
