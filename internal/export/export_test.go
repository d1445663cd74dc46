package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webextract/internal/scrape"
)

func sampleRecords() scrape.ResultSet {
	first := scrape.NewRecord()
	first.Set("title", "Привет")
	first.Set("links", []string{"/a", "/b"})

	second := scrape.NewRecord()
	second.Set("title", "Plain")
	second.Set("price", "10")

	return scrape.ResultSet{first, second}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	assert.True(t, Available("json"))
	assert.True(t, Available("csv"))
	assert.False(t, Available("parquet"))
	assert.Subset(t, Formats(), []string{"csv", "json"})
}

func TestWriteFile_EmptySet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	err := WriteFile(path, "json", nil)
	assert.ErrorIs(t, err, ErrNoRecords)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "empty export must not create a file")
}

func TestWriteFile_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := WriteFile(filepath.Join(t.TempDir(), "out.x"), "parquet", sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestWriteFile_JSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteFile(path, "json", sampleRecords()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	got := string(b)

	assert.Contains(t, got, "  {", "output should be indented")
	assert.Contains(t, got, `"Привет"`, "non-ASCII must not be escaped")
	assert.Less(t, strings.Index(got, `"title"`), strings.Index(got, `"links"`),
		"field order must follow insertion order")
}

func TestWriteFile_CSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, "csv", sampleRecords()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(string(b), "\xef\xbb\xbf"), "missing UTF-8 BOM")

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(b), "\xef\xbb\xbf")), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "title,links,price", lines[0])
	assert.Equal(t, "Привет,/a; /b,", lines[1])
	assert.Equal(t, "Plain,,10", lines[2])
}
