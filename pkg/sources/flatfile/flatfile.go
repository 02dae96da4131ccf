// Package flatfile parses delimited product exports into candidates.
//
// Rows are semicolon separated and positional:
//
//	sku;title;price;sale-price;url;category-path;image;description
//
// Trailing optional columns may be omitted. Rows without a title or url are
// reported as skips. A stray quote inside a field is kept as text; a
// structurally broken stream (a quoted field left open at the end of input,
// bytes that are not valid in the charset) aborts the parse.
package flatfile

import (
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/identity"
	"github.com/agentstation/catalogsync/pkg/sources"
)

// Column positions.
const (
	colSKU = iota
	colTitle
	colPrice
	colSalePrice
	colURL
	colCategory
	colImage
	colDescription
)

// Charset names accepted by WithCharset.
const (
	CharsetUTF8        = "utf-8"
	CharsetWindows1252 = "windows-1252"
	CharsetISO88591    = "iso-8859-1"
)

// Option configures a Feed.
type Option func(*Feed)

// WithCharset sets the character set of the input. Unknown names are
// reported by the first parse.
func WithCharset(name string) Option {
	return func(f *Feed) {
		f.charset = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithName labels the feed in parse errors, typically with a file name.
func WithName(name string) Option {
	return func(f *Feed) {
		f.name = name
	}
}

// Row is one data row of the feed. Exactly one of Candidate and Skip is set.
type Row struct {
	Line      int
	Candidate *catalog.Candidate
	Skip      *sources.Skip
}

// Feed is a parsed view over flat-file bytes. Iteration is lazy and every
// call to Rows starts again from the first byte.
type Feed struct {
	data    []byte
	charset string
	name    string
}

// Parse wraps data in a Feed. No bytes are read until Rows is iterated.
func Parse(data []byte, opts ...Option) *Feed {
	f := &Feed{data: data, charset: CharsetUTF8}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Rows yields every data row in file order. A stream-level failure is
// yielded once with a nil Row and ends the sequence.
func (f *Feed) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		reader, text, err := f.newReader()
		if err != nil {
			yield(Row{}, err)
			return
		}

		first := true
		for {
			record, err := reader.Read()
			if stderrors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Row{}, f.parseError(err))
				return
			}
			line, _ := reader.FieldPos(0)
			if reader.InputOffset() == int64(len(text)) {
				if qline, ok := unterminatedQuote(reader, text, record); ok {
					yield(Row{}, &errors.ParseError{
						Format:  "csv",
						File:    f.name,
						Line:    qline,
						Message: "quoted field not closed before end of input",
						Err:     csv.ErrQuote,
					})
					return
				}
			}
			if bad := invalidUTF8(record); bad >= 0 {
				yield(Row{}, &errors.ParseError{
					Format:  "csv",
					File:    f.name,
					Line:    line,
					Column:  bad + 1,
					Message: "invalid UTF-8 (wrong charset?)",
				})
				return
			}
			if first {
				first = false
				if isHeader(record) {
					continue
				}
			}
			if isBlank(record) {
				continue
			}
			if !yield(toRow(line, record), nil) {
				return
			}
		}
	}
}

// Collect drains Rows into a Batch.
func (f *Feed) Collect() (*sources.Batch, error) {
	batch := &sources.Batch{Source: sources.FlatFileID}
	for row, err := range f.Rows() {
		if err != nil {
			return nil, err
		}
		if row.Skip != nil {
			batch.Skipped = append(batch.Skipped, *row.Skip)
			continue
		}
		batch.Candidates = append(batch.Candidates, *row.Candidate)
	}
	return batch, nil
}

// newReader decodes the whole feed up front and reads it with lazy quoting,
// so a stray quote inside a field stays part of that field.
func (f *Feed) newReader() (*csv.Reader, []byte, error) {
	enc, err := lookupCharset(f.charset)
	if err != nil {
		return nil, nil, err
	}

	// A BOM, when present, wins over the configured charset.
	text, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), f.data)
	if err != nil {
		return nil, nil, errors.WrapParse("csv", f.name, err)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = constants.FlatFileDelimiter
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	return r, text, nil
}

// unterminatedQuote reports whether the final record ends inside a quoted
// field. Lazy quoting closes such a field silently at EOF, swallowing every
// row after the opening quote. An unterminated field is always the last one.
func unterminatedQuote(r *csv.Reader, text []byte, record []string) (int, bool) {
	line, col := r.FieldPos(len(record) - 1)
	start := lineOffset(text, line) + col - 1
	if start < 0 || start >= len(text) || text[start] != '"' {
		return 0, false
	}

	raw := bytes.TrimRight(text[start+1:], "\r\n")
	closing := len(raw) - len(bytes.TrimRight(raw, `"`))
	// "" is an escaped quote, so only an odd run of trailing quotes closes.
	return line, closing%2 == 0
}

func lineOffset(text []byte, line int) int {
	off := 0
	for ; line > 1; line-- {
		i := bytes.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	return off
}

func lookupCharset(name string) (encoding.Encoding, error) {
	switch name {
	case "", CharsetUTF8, "utf8":
		return encoding.Nop, nil
	case CharsetWindows1252, "cp1252":
		return charmap.Windows1252, nil
	case CharsetISO88591, "latin1":
		return charmap.ISO8859_1, nil
	default:
		return nil, errors.NewValidationError("charset", name, "unsupported character set")
	}
}

func (f *Feed) parseError(err error) error {
	var csvErr *csv.ParseError
	if stderrors.As(err, &csvErr) {
		return &errors.ParseError{
			Format:  "csv",
			File:    f.name,
			Line:    csvErr.Line,
			Column:  csvErr.Column,
			Message: csvErr.Err.Error(),
			Err:     err,
		}
	}
	return errors.WrapParse("csv", f.name, err)
}

func toRow(line int, record []string) Row {
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	sku := field(colSKU)
	ref := sku
	if ref == "" {
		ref = fmt.Sprintf("line %d", line)
	}

	title, rawURL := field(colTitle), field(colURL)
	switch {
	case title == "":
		return Row{Line: line, Skip: &sources.Skip{Ref: ref, Reason: "missing title"}}
	case rawURL == "":
		return Row{Line: line, Skip: &sources.Skip{Ref: ref, Reason: "missing url"}}
	}

	category, subcategory := sources.ParseCategoryPath(field(colCategory))
	metadata := catalog.Metadata{"line": line}
	if sku != "" {
		metadata["sku"] = sku
	}

	return Row{
		Line: line,
		Candidate: &catalog.Candidate{
			SourceRef:      ref,
			Title:          title,
			Description:    field(colDescription),
			RawURL:         rawURL,
			IdentityKey:    identity.Normalize(rawURL),
			Category:       category,
			Subcategory:    subcategory,
			ImageURL:       field(colImage),
			Price:          sources.ParsePrice(field(colPrice)),
			SalePrice:      sources.ParsePrice(field(colSalePrice)),
			SourceMetadata: metadata,
		},
	}
}

func isHeader(record []string) bool {
	return len(record) > colURL &&
		strings.EqualFold(strings.TrimSpace(record[colTitle]), "title") &&
		strings.EqualFold(strings.TrimSpace(record[colURL]), "url")
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func invalidUTF8(record []string) int {
	for i, v := range record {
		if !utf8.ValidString(v) {
			return i
		}
	}
	return -1
}
