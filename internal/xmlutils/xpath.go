// Package xmlutils provides XML-related utility functions used throughout the application.
package xmlutils

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"gopkg.in/xmlpath.v2"
)

// newDecoder returns a decoder that understands the non-UTF-8 encodings
// fiscal XML is commonly declared with (ISO-8859-1, windows-1252).
func newDecoder(data []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// Parse parses XML content and returns the xmlpath root node.
func Parse(data []byte) (*xmlpath.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("failed to parse XML: empty document")
	}
	root, err := xmlpath.ParseDecoder(newDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return root, nil
}

// ExtractFromXML extracts values from an XML node using an XPath expression
func ExtractFromXML(root *xmlpath.Node, xpath string) ([]string, error) {
	path, err := xmlpath.Compile(xpath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile XPath: %w", err)
	}

	var values []string
	iter := path.Iter(root)
	for iter.Next() {
		values = append(values, iter.Node().String())
	}

	return values, nil
}

// FirstValue returns the first trimmed, non-empty value matched by xpath,
// or "" when nothing matches or the expression is invalid.
func FirstValue(root *xmlpath.Node, xpath string) string {
	values, err := ExtractFromXML(root, xpath)
	if err != nil {
		return ""
	}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
