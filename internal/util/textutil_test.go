package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanExtractedText(t *testing.T) {
	raw := "  第一段\t\t内容   带多余空格\n\n\n\n第二段\x00\x07内容  "

	got := CleanExtractedText(raw)

	assert.Equal(t, "第一段 内容 带多余空格\n\n第二段内容", got)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "短文本", TruncateRunes("短文本", 10))
	// 按字符截断，不能把多字节字符切半
	assert.Equal(t, "神经元...", TruncateRunes("神经元基础", 3))
	assert.Equal(t, "", TruncateRunes("", 5))
}

func TestParsePagination(t *testing.T) {
	page, limit := ParsePagination("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = ParsePagination("3", "50")
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, limit)

	page, limit = ParsePagination("-1", "1000")
	assert.Equal(t, 1, page)
	assert.Equal(t, 100, limit)
}

func TestMustParseUint(t *testing.T) {
	assert.Equal(t, uint(42), MustParseUint("42"))
	assert.Equal(t, uint(0), MustParseUint("abc"))
	assert.Equal(t, uint(0), MustParseUint("-1"))
}
