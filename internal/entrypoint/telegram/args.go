package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/1001R/bpm/internal/entity"
)

// pageCallback encodes a history cursor as callback data. The format is
// "<o|n> <pageNo> <unixNanos> <seq>", which stays well under telegram's
// 64 byte callback data limit.
func pageCallback(pageNo int, cursor entity.Cursor) string {
	direction := "o"
	if cursor.Direction == entity.NewerPage {
		direction = "n"
	}
	return fmt.Sprintf("page %s %d %d %d", direction, pageNo, cursor.Time.UnixNano(), cursor.Seq)
}

func parsePageArgs(args string) (int, entity.Cursor, error) {
	fields := strings.Fields(args)
	if len(fields) != 4 {
		return 0, entity.Cursor{}, errors.New("invalid page arguments")
	}

	var direction entity.Direction
	switch fields[0] {
	case "o":
		direction = entity.OlderPage
	case "n":
		direction = entity.NewerPage
	default:
		return 0, entity.Cursor{}, fmt.Errorf("invalid page direction %q", fields[0])
	}

	pageNo, err := strconv.Atoi(fields[1])
	if err != nil || pageNo < 0 {
		return 0, entity.Cursor{}, fmt.Errorf("invalid page number %q", fields[1])
	}

	nanos, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return 0, entity.Cursor{}, fmt.Errorf("invalid page timestamp %q", fields[2])
	}

	seq, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return 0, entity.Cursor{}, fmt.Errorf("invalid page sequence %q", fields[3])
	}

	cursor := entity.Cursor{
		Direction: direction,
		Time:      time.Unix(0, nanos).UTC(),
		Seq:       seq,
	}
	return pageNo, cursor, nil
}
