package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		wantID string
		wantOK bool
	}{
		{"n suffix", "https://scontent.xx.fbcdn.net/v/t39.30808-1/123_456_789_n.jpg?s320x320", "456", true},
		{"o suffix", "https://scontent.xx.fbcdn.net/v/t39.30808-6/1_42_3_o.jpg", "42", true},
		{"other suffix", "https://scontent.xx.fbcdn.net/v/t39.30808-6/1_42_3_x.jpg", "", false},
		{"png", "https://scontent.xx.fbcdn.net/v/t39.30808-6/1_42_3_n.png", "", false},
		{"two groups", "https://scontent.xx.fbcdn.net/v/t39.30808-6/42_3_n.jpg", "", false},
		{"no path separator", "123_456_789_n.jpg", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestExtractID_MiddleGroupIsIdentity(t *testing.T) {
	a, okA := ExtractID("https://scontent-iad3-1.xx.fbcdn.net/v/t39.30808-6/111_987654_222_n.jpg?stp=s320x320")
	b, okB := ExtractID("https://scontent-lhr8-2.xx.fbcdn.net/v/t39.30808-6/999_987654_5_n.jpg?stp=s960x960")

	assert.True(t, okA)
	assert.True(t, okB)
	assert.Equal(t, a, b)
	assert.Equal(t, "987654", a)
}
