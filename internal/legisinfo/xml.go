package legisinfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// node is a namespace-stripped XML element.
type node struct {
	name     string
	text     strings.Builder
	children []*node
}

// child returns the trimmed text of the first direct child named name.
func (n *node) child(name string) string {
	for _, c := range n.children {
		if c.name == name {
			return strings.TrimSpace(c.text.String())
		}
	}
	return ""
}

// first returns the first non-empty direct child text among names.
func (n *node) first(names ...string) string {
	for _, name := range names {
		if v := n.child(name); v != "" {
			return v
		}
	}
	return ""
}

func (n *node) hasChild(name string) bool {
	for _, c := range n.children {
		if c.name == name {
			return true
		}
	}
	return false
}

// countDescendants counts elements named name anywhere below n.
func (n *node) countDescendants(name string) int {
	total := 0
	for _, c := range n.children {
		if c.name == name {
			total++
		}
		total += c.countDescendants(name)
	}
	return total
}

// walk visits n and every element below it in document order.
func (n *node) walk(fn func(*node)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

// parseTree decodes the whole document. The declared encoding is honored.
func parseTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("empty document")
	}
	if len(stack) != 0 {
		return nil, errors.New("unexpected end of document")
	}
	return root, nil
}
