package board

import (
	"context"
	"strings"
	"sync"

	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/scan"
)

// FreestylePage is the name the spelling board registers under.
const FreestylePage = "freestyle"

// DefaultAlphabet is the letter order of the spelling board.
const DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Freestyle is a spelling board: letters append to a buffer and the
// control items speak, space, delete or clear it. Each edit rebuilds the
// item set so the Speak item always carries the current text.
type Freestyle struct {
	alphabet string
	exit     string

	mu       sync.Mutex
	buf      []rune
	onChange func(text string)
}

// NewFreestyle creates a spelling board. exit, when set, adds an item that
// navigates to that page.
func NewFreestyle(exit string) *Freestyle {
	return &Freestyle{alphabet: DefaultAlphabet, exit: exit}
}

// OnChange registers a callback for buffer edits.
func (f *Freestyle) OnChange(fn func(text string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// Text returns the buffer.
func (f *Freestyle) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.buf)
}

// Items returns the current item set. Controls that would do nothing on
// an empty buffer are hidden.
func (f *Freestyle) Items() []scan.Item {
	text := f.Text()
	empty := strings.TrimSpace(text) == ""

	speak := scan.NewItem("Speak "+text, scan.Speak{
		Text:    text,
		Channel: announce.ChannelPersonal,
		Record:  true,
	})
	speak.Hidden = empty

	del := f.edit("Delete", func(b []rune) []rune {
		if len(b) == 0 {
			return b
		}
		return b[:len(b)-1]
	})
	del.Hidden = text == ""

	wipe := f.edit("Clear", func([]rune) []rune { return nil })
	wipe.Hidden = text == ""

	items := []scan.Item{
		speak,
		f.edit("Space", func(b []rune) []rune { return append(b, ' ') }),
		del,
		wipe,
	}
	for _, r := range f.alphabet {
		items = append(items, f.edit(string(r), func(b []rune) []rune { return append(b, r) }))
	}
	if f.exit != "" {
		items = append(items, scan.NewItem("Back", scan.Navigate{Target: f.exit}))
	}
	return items
}

// edit returns an item whose Action applies change to the buffer and
// rebuilds the item set.
func (f *Freestyle) edit(label string, change func([]rune) []rune) scan.Item {
	return scan.NewItem(label, scan.Action{
		Name: "freestyle." + strings.ToLower(label),
		Do: func(context.Context) (scan.Outcome, error) {
			f.mu.Lock()
			f.buf = change(f.buf)
			text := string(f.buf)
			cb := f.onChange
			f.mu.Unlock()

			if cb != nil {
				cb(text)
			}
			return scan.ReplaceWith(f.Items()), nil
		},
	})
}
