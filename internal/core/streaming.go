package core

// streaming.go prepares an uploaded CSV stream for the parser.
//
// Spreadsheet exports often carry a byte order mark, and hand-edited files
// occasionally contain invalid UTF-8. WrapImportReader handles both without
// buffering the whole file:
//
//   - A UTF-8 BOM is stripped; a UTF-16 (LE/BE) BOM switches decoding to UTF-16.
//   - Invalid UTF-8 sequences are replaced with U+FFFD.
//   - Bytes consumed from the source are counted for logging.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader tracks bytes read from the wrapped reader.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// WrapImportReader returns a UTF-8 reader over r and the counter of raw bytes
// consumed from r.
func WrapImportReader(r io.Reader) (io.Reader, *CountingReader) {
	counter := &CountingReader{reader: r}
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return transform.NewReader(counter, decoder), counter
}
