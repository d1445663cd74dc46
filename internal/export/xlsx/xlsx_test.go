package xlsx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"webextract/internal/export"
	"webextract/internal/scrape"
)

func TestRegistered(t *testing.T) {
	t.Parallel()
	assert.True(t, export.Available("xlsx"))
}

func TestWrite(t *testing.T) {
	t.Parallel()

	first := scrape.NewRecord()
	first.Set("title", "Привет")
	first.Set("links", []string{"/a", "/b"})

	second := scrape.NewRecord()
	second.Set("title", "Plain")
	second.Set("price", "10")

	var buf bytes.Buffer
	require.NoError(t, write(&buf, scrape.ResultSet{first, second}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"title", "links", "price"}, rows[0])
	assert.Equal(t, "Привет", rows[1][0])
	assert.Equal(t, "/a; /b", rows[1][1])
	assert.Equal(t, "10", rows[2][2])
}
