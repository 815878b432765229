// Package comboio serializes combo.Combo records into the JSON fragment
// format spec §4.F requires, and assembles the enclosing queue document
// the CLI writes to disk.
package comboio

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdeblois/crunch/internal/combo"
)

// Indent selects two- or four-space indentation for the emitted JSON, per
// spec's note that indentation is "driven by parameters."
type Indent int

const (
	TwoSpaces  Indent = 2
	FourSpaces Indent = 4
)

func (ind Indent) pad() string {
	n := int(ind)
	if n <= 0 {
		n = int(TwoSpaces)
	}
	return strings.Repeat(" ", n)
}

// Marshal renders a single combo as the JSON object described in spec
// §4.F, indented base levels deep.
func Marshal(c combo.Combo, loadFrame int32, indent Indent, base int) (string, error) {
	ts, err := FormatTimestamp(c.ReplayData.Timestamp)
	if err != nil {
		return "", fmt.Errorf("format timestamp %q: %w", c.ReplayData.Timestamp, err)
	}

	pad := indent.pad()
	baseIndent := strings.Repeat(pad, base)
	fieldIndent := strings.Repeat(pad, base+1)

	var b strings.Builder
	fmt.Fprintf(&b, "%s{\n", baseIndent)
	fmt.Fprintf(&b, "%s\"path\": \"%s\",\n", fieldIndent, EscapePath(c.ReplayData.AbsoluteReplayFilePath))
	fmt.Fprintf(&b, "%s\"gameStartAt\": \"%s\",\n", fieldIndent, ts)
	fmt.Fprintf(&b, "%s\"startFrame\": %d,\n", fieldIndent, c.MovieStartFrame(loadFrame))
	fmt.Fprintf(&b, "%s\"endFrame\": %d\n", fieldIndent, c.MovieEndFrame(loadFrame))
	fmt.Fprintf(&b, "%s}", baseIndent)
	return b.String(), nil
}

// MarshalQueue assembles the enclosing document for a full run: the
// "mode": "queue" wrapper plus one entry per combo, in order.
func MarshalQueue(combos []combo.Combo, loadFrame int32, indent Indent) (string, error) {
	pad := indent.pad()

	var b strings.Builder
	b.WriteString("{\n")
	fmt.Fprintf(&b, "%s\"mode\": \"queue\",\n", pad)
	fmt.Fprintf(&b, "%s\"replay\": \"\",\n", pad)
	fmt.Fprintf(&b, "%s\"isRealTimeMode\": false,\n", pad)
	fmt.Fprintf(&b, "%s\"outputOverlayFiles\": true,\n", pad)
	fmt.Fprintf(&b, "%s\"queue\": [", pad)

	for i, c := range combos {
		entry, err := Marshal(c, loadFrame, indent, 2)
		if err != nil {
			return "", err
		}
		if i == 0 {
			b.WriteString("\n")
		}
		b.WriteString(entry)
		if i < len(combos)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if len(combos) > 0 {
		fmt.Fprintf(&b, "%s]\n", pad)
	} else {
		b.WriteString("]\n")
	}
	b.WriteString("}")
	return b.String(), nil
}

// EscapePath doubles every backslash in path and leaves every other
// character untouched, per spec §4.F (so `C:\a\b` becomes `C:\\a\\b`).
func EscapePath(path string) string {
	return strings.ReplaceAll(path, `\`, `\\`)
}

// FormatTimestamp converts an ISO-8601 "YYYY-MM-DDTHH:MM:SSZ" timestamp
// into "MM/DD/YY H:MM am|pm" (spec §4.F): year as the final two digits,
// hour on a 12-hour clock without a leading zero, minutes zero-padded.
func FormatTimestamp(ts string) (string, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return "", err
	}

	hour := t.Hour()
	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}

	return fmt.Sprintf("%02d/%02d/%02d %d:%02d %s",
		int(t.Month()), t.Day(), t.Year()%100, h12, t.Minute(), suffix), nil
}
