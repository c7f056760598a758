package utils_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/iyulab/fileflux/internal/utils"
)

func TestSafeUTF8Truncate_ShortStringPassesThrough(t *testing.T) {
	assert.Equal(t, "hello", utils.SafeUTF8Truncate("hello", 100))
}

func TestSafeUTF8Truncate_NeverSplitsAMultiByteRune(t *testing.T) {
	s := strings.Repeat("€", 10) // each € is 3 bytes in UTF-8
	for n := 1; n < len(s); n++ {
		truncated := utils.SafeUTF8Truncate(s, n)
		assert.True(t, utf8.ValidString(truncated), "truncation at %d bytes produced invalid UTF-8", n)
		assert.LessOrEqual(t, len(truncated), n)
	}
}

func TestDecodeUTF8Replacing_ValidStringUnchanged(t *testing.T) {
	assert.Equal(t, "hello world", utils.DecodeUTF8Replacing("hello world"))
}

func TestDecodeUTF8Replacing_InvalidBytesBecomeReplacementChar(t *testing.T) {
	invalid := string([]byte{'a', 0xff, 'b'})
	decoded := utils.DecodeUTF8Replacing(invalid)
	assert.True(t, utf8.ValidString(decoded))
	assert.Contains(t, decoded, "�")
	assert.Contains(t, decoded, "a")
	assert.Contains(t, decoded, "b")
}

func TestCollapseBlankLines_CollapsesRunsAndTrimsEdges(t *testing.T) {
	in := "\n\n  line one  \n\n\n\nline two\n\n\n"
	out := utils.CollapseBlankLines(in)
	assert.Equal(t, "line one\n\nline two", out)
}

func TestCollapseBlankLines_NoBlankLinesIsUnchangedApartFromTrim(t *testing.T) {
	in := "  a  \n  b  "
	assert.Equal(t, "a\nb", utils.CollapseBlankLines(in))
}
