// Package docxtest builds small WordprocessingML packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Control describes one content control in a generated document
type Control struct {
	Alias string
	Tag   string
	// Text is split on "\n" into runs separated by <w:br/>
	Text string
}

// Archive zips the given parts (name -> content) into a package
func Archive(parts map[string]string) []byte {
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Document returns a minimal package whose body holds the given controls
func Document(controls ...Control) []byte {
	return Archive(map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types/>`,
		"word/document.xml":   BodyXML(controls...),
	})
}

// BodyXML renders a word/document.xml part containing the given controls
func BodyXML(controls ...Control) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	fmt.Fprintf(&sb, `<w:document xmlns:w="%s"><w:body>`, wordNS)
	for _, c := range controls {
		sb.WriteString(ControlXML(c))
	}
	sb.WriteString(`</w:body></w:document>`)
	return sb.String()
}

// ControlXML renders one block-level content control
func ControlXML(c Control) string {
	var sb strings.Builder
	sb.WriteString(`<w:sdt><w:sdtPr>`)
	if c.Alias != "" {
		fmt.Fprintf(&sb, `<w:alias w:val="%s"/>`, escape(c.Alias))
	}
	if c.Tag != "" {
		fmt.Fprintf(&sb, `<w:tag w:val="%s"/>`, escape(c.Tag))
	}
	sb.WriteString(`<w:id w:val="1"/></w:sdtPr><w:sdtContent><w:p><w:r>`)
	for i, line := range strings.Split(c.Text, "\n") {
		if i > 0 {
			sb.WriteString(`<w:br/>`)
		}
		fmt.Fprintf(&sb, `<w:t xml:space="preserve">%s</w:t>`, escape(line))
	}
	sb.WriteString(`</w:r></w:p></w:sdtContent></w:sdt>`)
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	).Replace(s)
}
