package scan

import (
	"context"

	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/content"
)

// Announcer plays user-meaningful speech through the FIFO queue.
// Announce blocks until this utterance has finished playing.
// *announce.Announcer implements it.
type Announcer interface {
	Announce(ctx context.Context, text string, channel announce.Channel, record bool) error
}

// Highlighter speaks item labels as they are highlighted. Calls must not
// block: each Highlight cancels the previous utterance.
type Highlighter interface {
	Highlight(text string)
	Silence()
}

// Observer is a render adapter. Methods are called synchronously while
// the controller holds its lock, so they must return quickly and must not
// call back into the Controller.
type Observer interface {
	Highlight(index int, item Item)
	Clear()
	StateChanged(state State)
	ItemsChanged(items []Item)
}

// Navigator resolves a Navigate target into the next item set.
type Navigator interface {
	Navigate(ctx context.Context, target string) (Outcome, error)
}

// OptionItems turns generated options into speakable items. The label
// announced while scanning is the summary when present; selecting the
// item speaks the full option and records it to history.
func OptionItems(opts []content.Option) []Item {
	items := make([]Item, 0, len(opts))
	for _, o := range opts {
		if o.Option == "" {
			continue
		}
		items = append(items, NewItem(o.Label(), Speak{
			Text:    o.Option,
			Channel: announce.ChannelPersonal,
			Record:  true,
		}))
	}
	return items
}

type nopHighlighter struct{}

func (nopHighlighter) Highlight(string) {}
func (nopHighlighter) Silence()         {}
