// Package board turns communication board pages into scannable items and
// resolves navigation between pages.
package board

import (
	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/scan"
)

// HomePage is the page shown at start and when a target page is missing.
const HomePage = "home"

// Page is a board page as served by the backend.
type Page struct {
	Name    string   `json:"name"`
	Title   string   `json:"title,omitempty"`
	Columns int      `json:"columns,omitempty"`
	Buttons []Button `json:"buttons"`
}

// Button is one cell on a page.
type Button struct {
	Text       string `json:"text"`
	Speech     string `json:"speech,omitempty"`
	TargetPage string `json:"targetPage,omitempty"`
	LLMQuery   string `json:"llmQuery,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
}

// Builder maps buttons to items.
type Builder struct {
	// Channel is used for spoken buttons. Defaults to the personal channel.
	Channel announce.Channel

	// Record adds spoken buttons to the history.
	Record bool
}

// DefaultBuilder speaks on the personal channel and records history.
func DefaultBuilder() Builder {
	return Builder{Channel: announce.ChannelPersonal, Record: true}
}

// Items builds the scan set for a page. Hidden buttons become hidden
// items, which the controller drops in SetItems, so neither scanning nor
// render adapters ever see them.
func (b Builder) Items(p *Page) []scan.Item {
	if p == nil {
		return nil
	}
	items := make([]scan.Item, 0, len(p.Buttons))
	for _, btn := range p.Buttons {
		item := scan.NewItem(btn.Text, b.Effect(btn))
		item.Hidden = btn.Hidden
		items = append(items, item)
	}
	return items
}

// Effect returns what selecting btn does:
//
//	llmQuery             → GenerateOptions
//	targetPage + speech  → Speak, then Navigate
//	targetPage           → Navigate
//	otherwise            → Speak (speech, or the button text)
func (b Builder) Effect(btn Button) scan.Effect {
	channel := b.Channel
	if channel == "" {
		channel = announce.ChannelPersonal
	}

	switch {
	case btn.LLMQuery != "":
		return scan.GenerateOptions{Prompt: btn.LLMQuery}
	case btn.TargetPage != "" && btn.Speech != "":
		return scan.Compound{Effects: []scan.Effect{
			scan.Speak{Text: btn.Speech, Channel: channel, Record: b.Record},
			scan.Navigate{Target: btn.TargetPage},
		}}
	case btn.TargetPage != "":
		return scan.Navigate{Target: btn.TargetPage}
	default:
		text := btn.Speech
		if text == "" {
			text = btn.Text
		}
		return scan.Speak{Text: text, Channel: channel, Record: b.Record}
	}
}
