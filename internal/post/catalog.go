// Package post loads a directory of posts into a catalog.
package post

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"postdeck/internal/logging"
	"postdeck/internal/mdx"
)

// Extensions recognized as posts.
var Extensions = []string{".mdx", ".md"}

// ErrNotFound is returned for an unknown post ID.
var ErrNotFound = errors.New("post not found")

// LoadError is a post that failed to parse.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Catalog is the set of posts in a directory.
type Catalog struct {
	Dir    string
	posts  map[string]*mdx.Post
	paths  map[string]string
	Errors []*LoadError
}

// Load reads every post in dir. A post that fails to parse is recorded in
// Errors and does not hide the others; only an unreadable directory fails
// the whole load.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read posts directory: %w", err)
	}

	c := &Catalog{
		Dir:   dir,
		posts: make(map[string]*mdx.Post),
		paths: make(map[string]string),
	}
	for _, e := range entries {
		if e.IsDir() || !IsPostFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		id := ID(path)
		if prev, dup := c.paths[id]; dup {
			c.Errors = append(c.Errors, &LoadError{Path: path, Err: fmt.Errorf("duplicate post id %q (also %s)", id, prev)})
			continue
		}
		p, err := LoadFile(path)
		if err != nil {
			c.Errors = append(c.Errors, &LoadError{Path: path, Err: err})
			logging.Get(logging.CategoryDeck).Warn("skipping %s: %v", path, err)
			continue
		}
		c.posts[id] = p
		c.paths[id] = path
	}
	logging.Deck("catalog %s: %d posts, %d errors", dir, len(c.posts), len(c.Errors))
	return c, nil
}

// LoadFile parses a single post file.
func LoadFile(path string) (*mdx.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return mdx.Parse(ID(path), data)
}

// IsPostFile reports whether name has a post extension.
func IsPostFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ID returns the post identifier for a file: its name without extension.
func ID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Get returns the post with the given ID.
func (c *Catalog) Get(id string) (*mdx.Post, error) {
	p, ok := c.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// Path returns the source file of a post.
func (c *Catalog) Path(id string) (string, bool) {
	p, ok := c.paths[id]
	return p, ok
}

// Len returns the number of loaded posts.
func (c *Catalog) Len() int {
	return len(c.posts)
}

// List returns posts newest first. Posts sharing a date are ordered by ID.
func (c *Catalog) List() []*mdx.Post {
	out := make([]*mdx.Post, 0, len(c.posts))
	for _, p := range c.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Meta.Date.Equal(b.Meta.Date.Time) {
			return a.Meta.Date.After(b.Meta.Date.Time)
		}
		return a.ID < b.ID
	})
	return out
}

// FormatDate renders a post date for listings.
func FormatDate(d mdx.Date) string {
	return d.Display()
}

// FormatTags renders tags as "#a #b".
func FormatTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, "#"+t)
	}
	return strings.Join(out, " ")
}
