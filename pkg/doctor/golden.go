package doctor

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
)

const detailWidth = 80

// Normalize prepares text for golden comparison: line endings become \n,
// trailing whitespace is dropped from every line and trailing blank lines
// are removed. Interior blank lines are kept.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\v\f")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// compareGolden returns an empty detail when the normalized texts match.
func compareGolden(expected, got string) (detail, diff string) {
	want := Normalize(expected)
	have := Normalize(got)
	if want == have {
		return "", ""
	}

	wantLines := strings.Split(want, "\n")
	haveLines := strings.Split(have, "\n")
	diff = cmp.Diff(wantLines, haveLines)

	for i := 0; i < len(wantLines) && i < len(haveLines); i++ {
		if wantLines[i] != haveLines[i] {
			return fmt.Sprintf("first difference at line %d: expected %q, got %q",
				i+1, clip(wantLines[i]), clip(haveLines[i])), diff
		}
	}
	return fmt.Sprintf("line count mismatch: expected %d, got %d", len(wantLines), len(haveLines)), diff
}

func clip(line string) string {
	if len(line) <= detailWidth {
		return line
	}
	return line[:detailWidth] + "..."
}
