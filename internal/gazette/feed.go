package gazette

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

// Entry is one item of a feed.
type Entry struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Published   string
	Author      string
}

type rssRoot struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"date"` // dc:date
	Author      string `xml:"author"`
	Creator     string `xml:"creator"` // dc:creator
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Links     []atomLink   `xml:"link"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Updated   string       `xml:"updated"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// ParseFeed parses an RSS 2.0 or Atom 1.0 document, detected from the root element.
func ParseFeed(data []byte) ([]Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("feed: empty data")
	}
	switch detectFormat(trimmed) {
	case "rss":
		var root rssRoot
		if err := decode(trimmed, &root); err != nil {
			return nil, fmt.Errorf("feed: parse rss: %w", err)
		}
		return rssEntries(root.Channel.Items), nil
	case "atom":
		var root atomFeed
		if err := decode(trimmed, &root); err != nil {
			return nil, fmt.Errorf("feed: parse atom: %w", err)
		}
		return atomEntries(root.Entries), nil
	default:
		return nil, fmt.Errorf("feed: unknown format (expected <rss> or <feed>)")
	}
}

func decode(data []byte, v any) error {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	return d.Decode(v)
}

func detectFormat(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss":
				return "rss"
			case "feed":
				return "atom"
			}
			return ""
		}
	}
}

func rssEntries(items []rssItem) []Entry {
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		author := strings.TrimSpace(item.Author)
		if author == "" {
			author = strings.TrimSpace(item.Creator)
		}
		guid := strings.TrimSpace(item.GUID)
		if guid == "" {
			guid = strings.TrimSpace(item.Link)
		}
		published := strings.TrimSpace(item.PubDate)
		if published == "" {
			published = strings.TrimSpace(item.Date)
		}
		out = append(out, Entry{
			GUID:        guid,
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Description: strings.TrimSpace(item.Description),
			Published:   published,
			Author:      author,
		})
	}
	return out
}

func atomEntries(entries []atomEntry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		link := entryLink(entry.Links)
		guid := strings.TrimSpace(entry.ID)
		if guid == "" {
			guid = link
		}
		published := strings.TrimSpace(entry.Published)
		if published == "" {
			published = strings.TrimSpace(entry.Updated)
		}
		var author string
		if len(entry.Authors) > 0 {
			author = strings.TrimSpace(entry.Authors[0].Name)
		}
		out = append(out, Entry{
			GUID:        guid,
			Title:       strings.TrimSpace(entry.Title),
			Link:        link,
			Description: strings.TrimSpace(entry.Summary),
			Published:   published,
			Author:      author,
		})
	}
	return out
}

func entryLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "alternate" || l.Rel == "" {
			return strings.TrimSpace(l.Href)
		}
	}
	if len(links) > 0 {
		return strings.TrimSpace(links[0].Href)
	}
	return ""
}
