package linetoday

import (
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const maxUUIDLength = 30

// DocumentUUID derives the document identifier from the channel title and
// last build date: ASCII letters and digits only, at most 30 of them.
func DocumentUUID(title, lastBuildDate string) string {
	var b strings.Builder
	for _, r := range title + lastBuildDate {
		if b.Len() == maxUUIDLength {
			break
		}
		if isASCIIAlnum(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// ItemID is the decimal XXH64 (seed 0) of the item link, or of the item
// index followed by the channel title when the item has no link. The hash
// is stable across processes.
func ItemID(link string, index int, channelTitle string) string {
	key := link
	if key == "" {
		key = strconv.Itoa(index) + channelTitle
	}
	return strconv.FormatUint(xxhash.Sum64String(key), 10)
}

// ParseDate parses an RFC-2822 date. ok is false for empty or malformed
// input.
func ParseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := mail.ParseDate(value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UnixMillis renders t as whole seconds since the epoch times 1000.
func UnixMillis(t time.Time) int64 {
	return t.Unix() * 1000
}
