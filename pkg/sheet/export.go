package sheet

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/hazyhaar/electoral-roll/pkg/voter"
)

// ErrExportDenied is returned when the export key does not match.
var ErrExportDenied = errors.New("export denied: wrong export key")

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Exporter serializes voter subsets behind a shared key.
//
// The key is a convenience gate against accidental downloads. It is not a
// security boundary: anyone holding the configured key can export, and
// there is no per-user auth behind it.
type Exporter struct {
	Key string
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Check validates key without writing anything.
func (e Exporter) Check(key string) error {
	if e.Key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(e.Key)) != 1 {
		return ErrExportDenied
	}
	return nil
}

// Export checks key, then writes voters to w in the given format. On a key
// mismatch nothing is written.
func (e Exporter) Export(w io.Writer, key, format string, voters []voter.Voter) error {
	if err := e.Check(key); err != nil {
		return err
	}
	switch format {
	case FormatXLSX, "":
		return WriteXLSX(w, voters)
	case FormatCSV:
		return WriteCSV(w, voters)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
