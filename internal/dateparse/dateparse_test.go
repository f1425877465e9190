package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday.
var now = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func TestParseFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"today", "2024-05-15"},
		{" Yesterday ", "2024-05-14"},
		{"last week", "2024-05-08"},
		{"last month", "2024-04-15"},
		{"last year", "2023-05-15"},
		{"monday", "2024-05-13"},
		{"last fri", "2024-05-10"},
		{"wednesday", "2024-05-08"},
		{"thursday", "2024-05-09"},
		{"-3", "2024-05-12"},
		{"10 days ago", "2024-05-05"},
		{"1 week ago", "2024-05-08"},
		{"2 months ago", "2024-03-15"},
		{"3 years ago", "2021-05-15"},
		{"2023", "2023-01-01"},
		{"2023-07", "2023-07-01"},
		{"2023-07-04", "2023-07-04"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFrom(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFromRejects(t *testing.T) {
	for _, input := range []string{"", "tomorrow", "next week", "+3", "2023-13-01", "soon"} {
		_, err := ParseFrom(input, now)
		assert.Error(t, err, input)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("yesterday"))
	assert.False(t, IsValid("someday"))
}
