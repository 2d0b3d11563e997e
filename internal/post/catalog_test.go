package post

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"postdeck/internal/deck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePost(t *testing.T, dir, name, date, body string) {
	t.Helper()
	src := "---\ntitle: " + name + "\ndate: " + date + "\n---\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
}

func TestLoad_SortsAndReportsErrors(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "older.md", "2023-01-05", "hello")
	writePost(t, dir, "b-same.mdx", "2024-02-01", "<Slide><SlideSegment>x</SlideSegment></Slide>")
	writePost(t, dir, "a-same.mdx", "2024-02-01", "text")
	writePost(t, dir, "broken.mdx", "2024-03-01", "<Slide></Slide>")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "drafts.md"), 0755))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	var ids []string
	for _, p := range c.List() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a-same", "b-same", "older"}, ids)

	require.Len(t, c.Errors, 1)
	assert.Equal(t, filepath.Join(dir, "broken.mdx"), c.Errors[0].Path)
	assert.True(t, errors.Is(c.Errors[0], deck.ErrEmptySlide))

	p, err := c.Get("b-same")
	require.NoError(t, err)
	assert.True(t, p.HasSlides())

	path, ok := c.Path("older")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "older.md"), path)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "talk.md", "2024-01-01", "a")
	writePost(t, dir, "talk.mdx", "2024-01-01", "b")

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Len(t, c.Errors, 1)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestID(t *testing.T) {
	assert.Equal(t, "reactive", ID("/posts/reactive.mdx"))
	assert.Equal(t, "v1.2", ID("v1.2.md"))
	assert.True(t, IsPostFile("A.MDX"))
	assert.False(t, IsPostFile("a.markdown"))
}

func TestFormatTags(t *testing.T) {
	assert.Equal(t, "#go #ui", FormatTags([]string{"go", " ", "ui"}))
	assert.Equal(t, "", FormatTags(nil))
}
