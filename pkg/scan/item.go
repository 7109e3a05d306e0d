package scan

import (
	"github.com/google/uuid"
)

// ItemID is an opaque, stable handle for a scannable item.
// Render adapters map it to whatever UI element shows the item.
type ItemID string

// NewItemID returns a fresh random item handle.
func NewItemID() ItemID {
	return ItemID(uuid.NewString())
}

// Item is one selectable entry in the scan set.
type Item struct {
	// ID identifies the item for render adapters.
	ID ItemID `json:"id"`

	// Label is announced by the highlighter when the item is highlighted.
	Label string `json:"label"`

	// Effect runs when the item is selected.
	Effect Effect `json:"-"`

	// Hidden items are never scanned.
	Hidden bool `json:"hidden,omitempty"`
}

// NewItem creates a visible item with a fresh ID.
func NewItem(label string, effect Effect) Item {
	return Item{
		ID:     NewItemID(),
		Label:  label,
		Effect: effect,
	}
}

// Kind returns the effect variant name, or "none".
func (i Item) Kind() string {
	if i.Effect == nil {
		return "none"
	}
	return i.Effect.Kind()
}

// visible returns a copy of items without hidden entries.
// Items without an ID get one so render adapters always have a handle.
func visible(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Hidden {
			continue
		}
		if it.ID == "" {
			it.ID = NewItemID()
		}
		out = append(out, it)
	}
	return out
}
