package web

import "github.com/teslashibe/go-scanboard/pkg/scan"

// Event types broadcast on /ws/events.
const (
	EventHighlight = "highlight"
	EventClear     = "clear"
	EventState     = "state"
	EventItems     = "items"
	EventSnapshot  = "snapshot"
	EventPage      = "page"
	EventText      = "text"
)

// HighlightEvent marks the item under the cursor.
type HighlightEvent struct {
	Type  string      `json:"type"`
	Index int         `json:"index"`
	ID    scan.ItemID `json:"id"`
	Label string      `json:"label"`
}

// StateEvent reports a controller state change.
type StateEvent struct {
	Type  string     `json:"type"`
	State scan.State `json:"state"`
}

// ItemsEvent carries the new scan set.
type ItemsEvent struct {
	Type  string     `json:"type"`
	Items []ItemView `json:"items"`
}

// SnapshotEvent is sent to a client when it connects.
type SnapshotEvent struct {
	Type string `json:"type"`
	scan.Snapshot
}

// PageEvent announces the board page now shown.
type PageEvent struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Columns int    `json:"columns,omitempty"`
}

// TextEvent carries the spelling board buffer.
type TextEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ItemView is the render shape of an item.
type ItemView struct {
	ID    scan.ItemID `json:"id"`
	Label string      `json:"label"`
	Kind  string      `json:"kind"`
}

func itemViews(items []scan.Item) []ItemView {
	out := make([]ItemView, len(items))
	for i, it := range items {
		out[i] = ItemView{ID: it.ID, Label: it.Label, Kind: it.Kind()}
	}
	return out
}

// ClientMessage is what browsers send on /ws/events.
type ClientMessage struct {
	Type string `json:"type"` // "press"
}
