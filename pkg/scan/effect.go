package scan

import (
	"context"

	"github.com/teslashibe/go-scanboard/pkg/announce"
)

// Effect is what happens when an item is selected.
// The set of variants is closed: Speak, Navigate, GenerateOptions,
// Compound and Action.
type Effect interface {
	// Kind returns the variant name ("speak", "navigate", ...).
	Kind() string

	sealed()
}

// Speak queues an announcement and waits for it to finish playing.
type Speak struct {
	Text    string
	Channel announce.Channel

	// Record adds the utterance to the spoken history.
	Record bool
}

// Navigate asks the Navigator for the item set of another board.
type Navigate struct {
	Target string
}

// GenerateOptions asks the content provider for options and replaces the
// item set with them.
type GenerateOptions struct {
	Prompt string
}

// Compound runs its effects in order and stops at the first error.
type Compound struct {
	Effects []Effect
}

// Action runs a caller-supplied function. Board variants use it for local
// state changes such as appending a letter on the spelling board.
type Action struct {
	Name string
	Do   func(ctx context.Context) (Outcome, error)
}

func (Speak) Kind() string           { return "speak" }
func (Navigate) Kind() string        { return "navigate" }
func (GenerateOptions) Kind() string { return "generate" }
func (Compound) Kind() string        { return "compound" }
func (Action) Kind() string          { return "action" }

func (Speak) sealed()           {}
func (Navigate) sealed()        {}
func (GenerateOptions) sealed() {}
func (Compound) sealed()        {}
func (Action) sealed()          {}

// Outcome is the result of running an effect.
type Outcome struct {
	// Items is the new item set when Replace is true.
	Items []Item

	// Replace swaps the item set before scanning restarts.
	Replace bool

	// Teardown leaves the board: the set is cleared and the controller
	// goes Idle instead of restarting.
	Teardown bool
}

// ReplaceWith returns an outcome that swaps the item set.
func ReplaceWith(items []Item) Outcome {
	return Outcome{Items: items, Replace: true}
}

// spoke reports whether the effect ends with something audible, in which
// case scanning waits out the post-selection grace before restarting.
func spoke(e Effect) bool {
	switch v := e.(type) {
	case Speak:
		return true
	case Compound:
		if len(v.Effects) == 0 {
			return false
		}
		return spoke(v.Effects[len(v.Effects)-1])
	default:
		return false
	}
}
