package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripMarkdownFence(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, StripMarkdownFence("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripMarkdownFence("```\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, StripMarkdownFence(`{"a": 1}`))
	assert.Equal(t, "", StripMarkdownFence("  "))
}

func TestExtractJSONArray(t *testing.T) {
	raw := "好的，以下是题目：\n```json\n[{\"question\": \"q\"}]\n```\n祝学习顺利！"

	got, err := ExtractJSONArray(raw)
	require.NoError(t, err)
	assert.Equal(t, `[{"question": "q"}]`, got)

	_, err = ExtractJSONArray("这里没有数组")
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	got, err := ExtractJSONObject("前缀 {\"title\": \"t\"} 后缀")
	require.NoError(t, err)
	assert.Equal(t, `{"title": "t"}`, got)

	_, err = ExtractJSONObject("[1, 2, 3]")
	assert.Error(t, err)
}
