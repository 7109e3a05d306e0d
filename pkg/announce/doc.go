// Package announce serializes user-meaningful speech.
//
// Two independent speech paths exist:
//
//   - Announcer: a strict FIFO queue. Each request is synthesized remotely
//     (tts.Provider) and played to completion before the next one starts.
//     Callers get a Ticket and may wait for their own utterance to finish.
//   - Highlighter: local, best-effort, interruptible speech for scan
//     highlights. Every call cancels the previous utterance and never waits
//     on the network, so the highlight cannot fall behind the scan timer.
//
// There is no ordering between the two paths.
//
// Example:
//
//	a := announce.New(backendTTS,
//	    announce.WithPlayer(announce.NewHubPlayer(h)),
//	    announce.WithHistory(store),
//	)
//	defer a.Close()
//
//	if err := a.Announce(ctx, "I would like a drink", announce.ChannelPersonal, true); err != nil {
//	    // synthesis or playback failed; resume scanning anyway
//	}
package announce
