package scan

// Cursor is the ordered scan set with its current index and cycle count.
// The zero value is an empty, idle cursor. Cursor is not safe for
// concurrent use; the Controller guards it.
type Cursor struct {
	items  []Item
	index  int
	cycles int
}

// NewCursor creates a cursor over the visible items.
func NewCursor(items []Item) *Cursor {
	c := &Cursor{}
	c.Set(items)
	return c
}

// Set replaces the whole set, resetting the index to -1 and the cycle
// count to 0. Hidden items are dropped.
func (c *Cursor) Set(items []Item) {
	c.items = visible(items)
	c.index = -1
	c.cycles = 0
}

// Advance moves to the next item, wrapping from the last item to the first.
// A wrap increments the cycle count. Moving from -1 onto the first item is
// not a wrap. On an empty set Advance does nothing and reports ok=false.
func (c *Cursor) Advance() (wrapped, ok bool) {
	if len(c.items) == 0 {
		c.index = -1
		return false, false
	}
	next := c.index + 1
	if next >= len(c.items) {
		next = 0
		c.cycles++
		wrapped = true
	}
	c.index = next
	return wrapped, true
}

// Current returns the highlighted item.
func (c *Cursor) Current() (Item, bool) {
	if len(c.items) == 0 || c.index < 0 || c.index >= len(c.items) {
		return Item{}, false
	}
	return c.items[c.index], true
}

// Freeze pins the index, used to hold the highlight at the pause point.
// Out-of-range indexes are ignored.
func (c *Cursor) Freeze(index int) {
	if index < -1 || index >= len(c.items) {
		return
	}
	c.index = index
}

// Reset moves the index back to -1 without touching the items.
func (c *Cursor) Reset() {
	c.index = -1
}

// ResetCycles zeroes the cycle count.
func (c *Cursor) ResetCycles() {
	c.cycles = 0
}

// Index returns the current index, -1 when nothing is highlighted.
func (c *Cursor) Index() int { return c.index }

// Cycles returns how many times the cursor wrapped since the last reset.
func (c *Cursor) Cycles() int { return c.cycles }

// Len returns the number of scannable items.
func (c *Cursor) Len() int { return len(c.items) }

// Items returns a copy of the scan set.
func (c *Cursor) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}
