package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/legistrack/internal/bill"
)

// Digest is a Markdown document listing bills that changed since a point in time.
type Digest struct {
	Since       time.Time
	GeneratedAt time.Time
	Bills       int
	Fingerprint string
	Markdown    []byte
}

type digestMeta struct {
	Title     string `yaml:"title"`
	Since     string `yaml:"since"`
	Generated string `yaml:"generated"`
	Bills     int    `yaml:"bills"`
}

// BuildDigest renders entities (typically Store.ListChanged(since)) as a
// Markdown document with YAML front matter carrying a content fingerprint.
// The fingerprint depends only on the front matter and body, so two digests
// of the same changes generated at the same instant are identical.
func BuildDigest(entities []*bill.Entity, since, now time.Time) (Digest, error) {
	meta := digestMeta{
		Title:     "Legislative changes since " + since.UTC().Format("2006-01-02 15:04 MST"),
		Since:     since.UTC().Format(time.RFC3339),
		Generated: now.UTC().Format(time.RFC3339),
		Bills:     len(entities),
	}
	fm, err := yaml.Marshal(meta)
	if err != nil {
		return Digest{}, fmt.Errorf("marshal digest front matter: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("---\n")
	doc.Write(fm)
	doc.WriteString("---\n\n")
	doc.WriteString("# " + meta.Title + "\n\n")
	writeBody(&doc, entities, since)

	out, err := mdfp.ProcessContent(doc.String())
	if err != nil {
		return Digest{}, fmt.Errorf("fingerprint digest: %w", err)
	}
	fields, _, err := splitFrontMatter([]byte(out))
	if err != nil {
		return Digest{}, err
	}
	fp, _ := fields[mdfp.FingerprintField].(string)

	return Digest{
		Since:       since,
		GeneratedAt: now,
		Bills:       len(entities),
		Fingerprint: fp,
		Markdown:    []byte(out),
	}, nil
}

func writeBody(b *bytes.Buffer, entities []*bill.Entity, since time.Time) {
	if len(entities) == 0 {
		b.WriteString("No bills changed in this period.\n")
		return
	}
	b.WriteString("| Bill | Session | Stage | Last change | Title |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, e := range entities {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			cell(e.ID()), cell(e.Session()), cell(e.CurrentStage().Label()),
			e.LastChangedAt().UTC().Format("2006-01-02"), cell(e.Title()))
	}

	for _, e := range entities {
		fmt.Fprintf(b, "\n## %s (%s)\n\n", e.ID(), e.Session())
		if e.Title() != "" {
			b.WriteString(e.Title() + "\n\n")
		}
		if e.DiedOnOrderPaper() {
			b.WriteString("*Died on the order paper.*\n\n")
		}
		for _, s := range e.History() {
			if s.Timestamp().Before(since) {
				continue
			}
			line := fmt.Sprintf("- %s: %s (%s)", s.Timestamp().UTC().Format("2006-01-02"), s.StatusText(), s.Stage().Label())
			if s.Amended() {
				line += ", amended"
			}
			if s.SourceURL() != "" {
				line += " [details](" + s.SourceURL() + ")"
			}
			b.WriteString(line + "\n")
		}
	}
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func cell(s string) string { return cellEscaper.Replace(s) }

// VerifyDigest reports whether a digest's fingerprint still matches its content.
func VerifyDigest(content []byte) (bool, error) {
	return mdfp.VerifyFingerprint(string(content))
}

// RenderHTML converts a digest (front matter is dropped) to HTML.
func RenderHTML(markdown []byte) ([]byte, error) {
	_, body, err := splitFrontMatter(markdown)
	if err != nil {
		return nil, err
	}
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var out bytes.Buffer
	if err := md.Convert(body, &out); err != nil {
		return nil, fmt.Errorf("render digest: %w", err)
	}
	return out.Bytes(), nil
}

var errUnterminatedFrontMatter = errors.New("front matter start delimiter found but closing delimiter is missing")

// splitFrontMatter separates "---" delimited YAML from the body. A document
// without front matter yields no fields and the whole input as body.
func splitFrontMatter(content []byte) (map[string]any, []byte, error) {
	const delim = "---\n"
	if !bytes.HasPrefix(content, []byte(delim)) {
		return map[string]any{}, content, nil
	}
	rest := content[len(delim):]
	end := bytes.Index(rest, []byte("\n"+delim))
	if end < 0 {
		return nil, nil, errUnterminatedFrontMatter
	}
	fields := map[string]any{}
	if err := yaml.Unmarshal(rest[:end+1], &fields); err != nil {
		return nil, nil, fmt.Errorf("parse front matter: %w", err)
	}
	return fields, rest[end+1+len(delim):], nil
}
