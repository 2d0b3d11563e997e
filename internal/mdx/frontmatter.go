package mdx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Layout controls the width a post renders at.
type Layout string

const (
	LayoutProse Layout = "prose" // Readable column
	LayoutFull  Layout = "full"  // Full terminal width
)

// DateLayout is the front matter date format.
const DateLayout = "2006-01-02"

// Date is a calendar date from front matter.
type Date struct {
	time.Time
}

// UnmarshalYAML parses YYYY-MM-DD.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	t, err := time.Parse(DateLayout, strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: date %q: want YYYY-MM-DD", node.Line, node.Value)
	}
	d.Time = t
	return nil
}

// MarshalYAML writes YYYY-MM-DD.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.Format(DateLayout), nil
}

// Display renders the date the way post headers show it.
func (d Date) Display() string {
	return d.Format("Jan 2, 2006")
}

// Meta is a post's front matter.
type Meta struct {
	Title      string   `yaml:"title"`
	Date       Date     `yaml:"date"`
	Desc       string   `yaml:"desc"`
	Tags       []string `yaml:"tags"`
	Layout     Layout   `yaml:"layout"`
	RenderMath bool     `yaml:"render_math"`
	// MediaBase resolves relative Slide media references.
	MediaBase string `yaml:"media_base"`
}

var (
	ErrNoFrontMatter = errors.New("missing front matter")
	ErrNoDate        = errors.New("front matter: date is required")
	ErrBadLayout     = errors.New("front matter: unknown layout")
)

var fence = []byte("---")

// splitFrontMatter separates the YAML header from the body. bodyLine is the
// 1-based line the body starts on.
func splitFrontMatter(src []byte) (header, body []byte, bodyLine int, err error) {
	src = bytes.TrimPrefix(src, []byte("\ufeff"))
	lines := bytes.SplitAfter(src, []byte("\n"))
	if len(lines) == 0 || !bytes.Equal(bytes.TrimSpace(lines[0]), fence) {
		return nil, nil, 0, ErrNoFrontMatter
	}
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), fence) {
			header = bytes.Join(lines[1:i], nil)
			body = bytes.Join(lines[i+1:], nil)
			return header, body, i + 2, nil
		}
	}
	return nil, nil, 0, fmt.Errorf("%w: unterminated header", ErrNoFrontMatter)
}

func parseMeta(header []byte) (Meta, error) {
	var m Meta
	if err := yaml.Unmarshal(header, &m); err != nil {
		return Meta{}, fmt.Errorf("front matter: %w", err)
	}
	if m.Date.IsZero() {
		return Meta{}, ErrNoDate
	}
	switch m.Layout {
	case "":
		m.Layout = LayoutProse
	case LayoutProse, LayoutFull:
	default:
		return Meta{}, fmt.Errorf("%w: %q", ErrBadLayout, m.Layout)
	}
	return m, nil
}
