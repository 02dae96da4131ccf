package flatfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/sources"
)

const sampleFeed = `sku;title;price;sale-price;url;category-path;image;description
W-1;Blue Widget;19,99;;HTTP://Shop.Example.com/widgets/blue/;Website>Online Shop;https://cdn.example.com/blue.png;A blue widget
W-2;;5;;http://shop.example.com/widgets/nameless;;;
W-3;Red Widget;"1.299,50";999;;Tools;;
W-4;Green Widget;abc;;http://shop.example.com/widgets/green?ref=feed
`

func TestCollect(t *testing.T) {
	batch, err := Parse([]byte(sampleFeed)).Collect()
	require.NoError(t, err)

	assert.Equal(t, sources.FlatFileID, batch.Source)
	require.Len(t, batch.Candidates, 2)
	require.Len(t, batch.Skipped, 2)
	assert.Equal(t, 4, batch.Found())

	blue := batch.Candidates[0]
	assert.Equal(t, "W-1", blue.SourceRef)
	assert.Equal(t, "Blue Widget", blue.Title)
	assert.Equal(t, "A blue widget", blue.Description)
	assert.Equal(t, "http://shop.example.com/widgets/blue", blue.IdentityKey)
	assert.Equal(t, "Website", blue.Category)
	assert.Equal(t, "Online Shop", blue.Subcategory)
	assert.Equal(t, "https://cdn.example.com/blue.png", blue.ImageURL)
	assert.InDelta(t, 19.99, blue.Price, 0.0001)
	assert.Zero(t, blue.SalePrice)
	assert.Equal(t, "W-1", blue.SourceMetadata["sku"])
	assert.Equal(t, 2, blue.SourceMetadata["line"])

	green := batch.Candidates[1]
	assert.Equal(t, "http://shop.example.com/widgets/green", green.IdentityKey)
	assert.Equal(t, "Other", green.Category, "missing category column")
	assert.Empty(t, green.Subcategory)
	assert.Zero(t, green.Price, "unparsable price falls back to zero")

	assert.Equal(t, sources.Skip{Ref: "W-2", Reason: "missing title"}, batch.Skipped[0])
	assert.Equal(t, sources.Skip{Ref: "W-3", Reason: "missing url"}, batch.Skipped[1])
}

func TestRowsIsRestartable(t *testing.T) {
	feed := Parse([]byte(sampleFeed))

	collect := func() []string {
		var titles []string
		for row, err := range feed.Rows() {
			require.NoError(t, err)
			if row.Candidate != nil {
				titles = append(titles, row.Candidate.Title)
			}
		}
		return titles
	}

	first := collect()
	assert.Equal(t, []string{"Blue Widget", "Green Widget"}, first)
	assert.Equal(t, first, collect())
}

func TestRowsStopsEarly(t *testing.T) {
	seen := 0
	for range Parse([]byte(sampleFeed)).Rows() {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestRowsWithoutHeader(t *testing.T) {
	data := "A-1;Alpha;10;;https://example.com/a\n\n;Beta;12;;https://example.com/b\n"
	batch, err := Parse([]byte(data)).Collect()
	require.NoError(t, err)

	require.Len(t, batch.Candidates, 2)
	assert.Equal(t, "Alpha", batch.Candidates[0].Title)
	assert.Equal(t, "line 3", batch.Candidates[1].SourceRef, "rows without a sku are referenced by line")
	assert.NotContains(t, batch.Candidates[1].SourceMetadata, "sku")
}

func TestStreamErrorsAbort(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts []Option
	}{
		{
			name: "unterminated quote",
			data: "A-1;\"Alpha;10;;https://example.com/a\n",
		},
		{
			name: "unterminated quote after escaped quote",
			data: "A-1;Alpha;10;;https://example.com/a;;;\"says \"\"hi\"\"\n",
		},
		{
			name: "invalid utf-8",
			data: "A-1;Caf\xe9;10;;https://example.com/a\n",
		},
		{
			name: "unknown charset",
			data: "A-1;Alpha;10;;https://example.com/a\n",
			opts: []Option{WithCharset("ebcdic")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := Parse([]byte(tt.data), append(tt.opts, WithName("feed.csv"))...).Collect()
			require.Error(t, err)
			assert.Nil(t, batch)
			assert.True(t, errors.IsValidationError(err), "stream errors are input errors: %v", err)
		})
	}
}

func TestStrayQuotesStayInField(t *testing.T) {
	data := "W-1;27\" Monitor;199;;http://shop.example.com/m27;Hardware;;\n" +
		"W-2;Keyboard;49;;http://shop.example.com/kb;Hardware;;\n" +
		"W-3;\"Quoted; with delimiter\";5;;http://shop.example.com/q;;;\"ends \"\"here\"\"\"\n"

	batch, err := Parse([]byte(data)).Collect()
	require.NoError(t, err)
	require.Len(t, batch.Candidates, 3)

	assert.Equal(t, `27" Monitor`, batch.Candidates[0].Title)
	assert.Equal(t, "http://shop.example.com/m27", batch.Candidates[0].IdentityKey)
	assert.Equal(t, "Keyboard", batch.Candidates[1].Title)
	assert.Equal(t, "Quoted; with delimiter", batch.Candidates[2].Title)
	assert.Equal(t, `ends "here"`, batch.Candidates[2].Description)
}

func TestParseErrorCarriesPosition(t *testing.T) {
	data := "A-1;Alpha;10;;https://example.com/a\nA-2;\"Open quote;1;;https://example.com/b\nA-3;Gamma;3;;https://example.com/c\n"

	var got error
	rows := 0
	for row, err := range Parse([]byte(data), WithName("feed.csv")).Rows() {
		if err != nil {
			got = err
			break
		}
		assert.NotNil(t, row.Candidate)
		rows++
	}

	assert.Equal(t, 1, rows, "rows before the corruption are still yielded")
	var parseErr *errors.ParseError
	require.ErrorAs(t, got, &parseErr)
	assert.Equal(t, 2, parseErr.Line)
	assert.Equal(t, "feed.csv", parseErr.File)
}

func TestCharsets(t *testing.T) {
	t.Run("windows-1252", func(t *testing.T) {
		data := "A-1;Caf\xe9 cr\xe8me;10;;https://example.com/cafe\n"
		batch, err := Parse([]byte(data), WithCharset("Windows-1252")).Collect()
		require.NoError(t, err)
		require.Len(t, batch.Candidates, 1)
		assert.Equal(t, "Café crème", batch.Candidates[0].Title)
	})

	t.Run("utf-8 byte order mark", func(t *testing.T) {
		data := "\xef\xbb\xbf" + strings.SplitN(sampleFeed, "\n", 3)[0] + "\n" + strings.SplitN(sampleFeed, "\n", 3)[1] + "\n"
		batch, err := Parse([]byte(data)).Collect()
		require.NoError(t, err)
		require.Len(t, batch.Candidates, 1, "header is recognised after the BOM")
		assert.Equal(t, "W-1", batch.Candidates[0].SourceRef)
	})
}
