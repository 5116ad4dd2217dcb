package sru

import (
	"encoding/xml"
	"strings"
)

// FlattenText extracts the character data of an XML fragment, joining
// chunks with single spaces. Malformed trailing input ends the walk rather
// than failing it; whatever text was collected is returned.
func FlattenText(raw string) string {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var parts []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			if text := strings.TrimSpace(string(cd)); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " ")
}

// firstElementText returns the character data of the first element with
// the given local name inside an XML fragment, or "".
func firstElementText(raw, local string) string {
	dec := xml.NewDecoder(strings.NewReader(raw))
	depth := 0
	var buf strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth > 0 {
				depth++
			} else if t.Name.Local == local {
				depth = 1
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
				if depth == 0 {
					return strings.TrimSpace(buf.String())
				}
			}
		case xml.CharData:
			if depth > 0 {
				buf.Write(t)
			}
		}
	}
}
