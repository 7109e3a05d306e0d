// Package hub fans board events out to every connected browser over
// websockets. One goroutine owns the client set; clients that fall behind
// are dropped rather than allowed to stall the controller.
package hub

import "encoding/json"

// Message is one encoded event frame.
type Message struct {
	Event string // the event's "type" field, for logs
	Data  []byte
}

// NewMessage wraps an encoded event.
func NewMessage(data []byte) Message {
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(data, &head)
	return Message{Event: head.Type, Data: data}
}
