package serialconn

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/icza/gox/stringsx"

	"github.com/obsidianstack/serialbridge/pkg/types"
)

// tabs maps field-separating tabs to spaces; stringsx.Clean drops every
// non-graphic rune, tabs included.
var tabs = strings.NewReplacer("\t", " ")

// CleanLine strips a trailing carriage return, ANSI escape sequences and
// non-printable characters from one serial line, then trims surrounding
// whitespace. Tabs become single spaces so tab-separated fields stay apart.
// It returns "" for lines with nothing left to show.
func CleanLine(s string) string {
	s = strings.TrimRight(s, "\r")
	s = stripansi.Strip(s)
	s = stringsx.Clean(tabs.Replace(s))
	return strings.TrimSpace(s)
}

// ParseLine builds the data message for one cleaned line. When the line is
// valid JSON it is attached as the parsed value; otherwise only the raw text
// is delivered. The second result reports whether the line parsed.
func ParseLine(line string, at time.Time) (types.DataMessage, bool) {
	if line != "" && json.Valid([]byte(line)) {
		return types.NewData(line, json.RawMessage(line), at), true
	}
	return types.NewData(line, nil, at), false
}
