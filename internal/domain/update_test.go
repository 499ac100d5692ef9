package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int
		want    string
	}{
		{"under limit untouched", "short reply", 1000, "short reply"},
		{"exactly at limit untouched", "abcde", 5, "abcde"},
		{"over limit cut", "abcdef", 5, "abcde"},
		{"multibyte cut at rune boundary", "héllo wörld", 4, "héll"},
		{"zero limit uses default", strings.Repeat("x", 1500), 0, strings.Repeat("x", 1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateContent(tt.content, tt.limit))
		})
	}
}

func TestHasReader(t *testing.T) {
	u := &Update{ReadBy: []string{"alice", "bob"}}
	assert.True(t, u.HasReader("alice"))
	assert.False(t, u.HasReader("carol"))
	assert.False(t, (&Update{}).HasReader("alice"))
}
