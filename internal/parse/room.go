package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	roomNumberRe = regexp.MustCompile(`(\d{3,4})\s*$`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// ParsedRoom holds the structured data parsed from a room label.
type ParsedRoom struct {
	Block  string
	Number string
	Floor  int
	Seq    int
}

// ParseRoom extracts block, floor and sequence from labels such as
// "BLOCK-A-203", "Block A 203" or "203". The last two digits of the number
// are the sequence, the digits before them the floor.
func ParseRoom(raw string) (ParsedRoom, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "#", " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	loc := roomNumberRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return ParsedRoom{}, fmt.Errorf("unable to parse room number from %q", raw)
	}
	number := s[loc[2]:loc[3]]
	n, err := strconv.Atoi(number)
	if err != nil {
		return ParsedRoom{}, fmt.Errorf("unable to parse room number from %q: %w", raw, err)
	}

	floor, seq := n/100, n%100
	if floor == 0 || seq == 0 {
		return ParsedRoom{}, fmt.Errorf("room number %q in %q has no floor or sequence", number, raw)
	}

	block := strings.Trim(strings.TrimSpace(s[:loc[0]]), "-")
	block = strings.ToUpper(strings.ReplaceAll(block, " ", "-"))
	return ParsedRoom{Block: block, Number: number, Floor: floor, Seq: seq}, nil
}

// RoomNumber formats a floor and sequence as "<floor><seq:02>".
func RoomNumber(floor, seq int) string {
	return fmt.Sprintf("%d%02d", floor, seq)
}

// RoomID joins a block ID and room number, e.g. "BLOCK-A-203".
func RoomID(blockID string, floor, seq int) string {
	return blockID + "-" + RoomNumber(floor, seq)
}
