package chat

import (
	"sort"
	"strings"
)

// RoomIDSeparator joins the two sorted participant ids. Clients derive the
// same id, so it must not change.
const RoomIDSeparator = "-"

// RoomID returns the room id for a pair of users regardless of argument order.
func RoomID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, RoomIDSeparator)
}

// normalizeRoom trims whitespace from a client supplied chat id.
func normalizeRoom(room string) string {
	return strings.TrimSpace(room)
}
