package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoom(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  ParsedRoom
		expectErr bool
	}{
		{
			name:     "Full room ID",
			raw:      "BLOCK-A-203",
			expected: ParsedRoom{Block: "BLOCK-A", Number: "203", Floor: 2, Seq: 3},
		},
		{
			name:     "Bare number",
			raw:      "101",
			expected: ParsedRoom{Block: "", Number: "101", Floor: 1, Seq: 1},
		},
		{
			name:     "Spaced label",
			raw:      "  Block  B 1204 ",
			expected: ParsedRoom{Block: "BLOCK-B", Number: "1204", Floor: 12, Seq: 4},
		},
		{
			name:     "Hash separator",
			raw:      "C#305",
			expected: ParsedRoom{Block: "C", Number: "305", Floor: 3, Seq: 5},
		},
		{
			name:      "Too short",
			raw:       "BLOCK-A-12",
			expectErr: true,
		},
		{
			name:      "Zero sequence",
			raw:       "BLOCK-A-200",
			expectErr: true,
		},
		{
			name:      "No digits",
			raw:       "Lobby",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRoom(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRoomID(t *testing.T) {
	assert.Equal(t, "BLOCK-A-203", RoomID("BLOCK-A", 2, 3))
	assert.Equal(t, "BLOCK-B-1012", RoomID("BLOCK-B", 10, 12))
}
