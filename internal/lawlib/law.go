package lawlib

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Type distinguishes Acts from regulations.
type Type string

const (
	TypeAct        Type = "Act"
	TypeRegulation Type = "Regulation"
)

// ParseType accepts the type case-insensitively, including plurals.
func ParseType(s string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "act", "acts":
		return TypeAct, true
	case "regulation", "regulations":
		return TypeRegulation, true
	}
	return "", false
}

// Law is one indexed file.
type Law struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	TitleFr     string    `json:"title_fr,omitempty"`
	Type        Type      `json:"type"`
	FilePath    string    `json:"file_path"`
	LastUpdated time.Time `json:"last_updated"`
}

// titleTags are tried in order; the first with text wins.
var titleTags = []string{"Title", "LongTitle", "ShortTitle", "Label"}

// parseLaw reads the metadata of one law file. The identifier is the file
// name without extension; a file without any title element is titled after
// its identifier.
func parseLaw(path string, data []byte) (Law, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	found := map[string]string{}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	type frame struct {
		name string
		text strings.Builder
	}
	var stack []*frame
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Law{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, &frame{name: t.Name.Local})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, seen := found[top.name]; !seen {
				if text := strings.Join(strings.Fields(top.text.String()), " "); text != "" {
					found[top.name] = text
				}
			}
		}
	}

	law := Law{ID: id, FilePath: path}
	for _, tag := range titleTags {
		if v, ok := found[tag]; ok {
			law.Title = v
			break
		}
	}
	if law.Title == "" {
		law.Title = strings.ReplaceAll(id, "-", " ")
	}
	return law, nil
}
