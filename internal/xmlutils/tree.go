package xmlutils

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Element is a minimal in-memory XML element. Names are local names; the
// namespace is kept separately because fiscal XML always uses a default one.
type Element struct {
	Name     string
	Space    string
	Attrs    []xml.Attr
	Children []*Element
	Text     string
	parent   *Element
}

// outsideRootSpace is what may surround the root element: XML whitespace and
// a leading byte order mark.
const outsideRootSpace = " \t\r\n\ufeff"

// BuildTree parses data into an Element tree and returns the root element.
// Exactly one root is required and only whitespace, comments and processing
// instructions may appear around it.
func BuildTree(data []byte) (*Element, error) {
	dec := newDecoder(data)

	var root *Element
	var current *Element
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Name:   t.Name.Local,
				Space:  t.Name.Space,
				Attrs:  append([]xml.Attr(nil), t.Attr...),
				parent: current,
			}
			if current == nil {
				if root != nil {
					return nil, fmt.Errorf("failed to parse XML: multiple root elements")
				}
				root = el
			} else {
				current.Children = append(current.Children, el)
			}
			current = el
		case xml.EndElement:
			if current != nil {
				current = current.parent
			}
		case xml.CharData:
			if current != nil {
				current.Text += string(t)
			} else if strings.Trim(string(t), outsideRootSpace) != "" {
				return nil, fmt.Errorf("failed to parse XML: character data outside root element")
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("failed to parse XML: no root element")
	}
	if current != nil {
		return nil, fmt.Errorf("failed to parse XML: unclosed element <%s>", current.Name)
	}
	return root, nil
}

// Walk visits e and its descendants in document order. Returning false from
// fn stops the walk.
func (e *Element) Walk(fn func(*Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, c := range e.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// FindAll returns every descendant of e (excluding e) matching pred, in document order.
func (e *Element) FindAll(pred func(*Element) bool) []*Element {
	var out []*Element
	for _, c := range e.Children {
		c.Walk(func(el *Element) bool {
			if pred(el) {
				out = append(out, el)
			}
			return true
		})
	}
	return out
}

// Find returns the first descendant of e matching pred, or nil.
func (e *Element) Find(pred func(*Element) bool) *Element {
	var found *Element
	for _, c := range e.Children {
		c.Walk(func(el *Element) bool {
			if pred(el) {
				found = el
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// Attr returns the value of the attribute with the given local name.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

// TrimmedText returns the element's own character data without surrounding space.
func (e *Element) TrimmedText() string {
	return strings.TrimSpace(e.Text)
}

// NameContains matches elements whose local name contains sub, ignoring case.
func NameContains(sub string) func(*Element) bool {
	sub = strings.ToLower(sub)
	return func(e *Element) bool {
		return strings.Contains(strings.ToLower(e.Name), sub)
	}
}

// NameIs matches elements whose local name equals name, ignoring case.
func NameIs(name string) func(*Element) bool {
	return func(e *Element) bool {
		return strings.EqualFold(e.Name, name)
	}
}
