// Package scan implements the switch-access scanning engine.
//
// Scanning highlights one item at a time on a timer so that a user with a
// single switch (key, gamepad button, head switch, wake word) can choose an
// item by pressing when the item they want is highlighted. The package is
// headless: items are opaque handles with a label and an Effect, and
// rendering happens through the Observer interface.
//
// # Components
//
//   - Scheduler: owns the single repeating scan timer.
//   - Cursor: the ordered item set, current index and cycle counter.
//   - Controller: the state machine tying the two together with the
//     collaborators (Announcer, Highlighter, Navigator, content.Provider).
//
// # States
//
//	Idle ──Start──▶ Scanning ──cycle limit──▶ PausedByLimit
//	                   │  ▲                        │
//	           Press/Activate                    Resume (after grace delay)
//	                   ▼  │                        │
//	           SuspendedForAsync ◀─────────────────┘
//
// Listening is entered by BeginListening while a voice adapter captures an
// utterance. Every activation runs its Effect on a separate goroutine and
// ends in exactly one restart of scanning, whatever the outcome.
//
// # Usage
//
//	ctrl, err := scan.New(
//	    scan.WithInterval(3500*time.Millisecond),
//	    scan.WithCycleLimit(3),
//	    scan.WithAnnouncer(announcer),
//	    scan.WithHighlighter(highlighter),
//	    scan.WithContent(contentProvider),
//	)
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Dispose()
//
//	ctrl.SetItems([]scan.Item{
//	    scan.NewItem("Hello", scan.Speak{Text: "Hello", Channel: announce.ChannelPersonal}),
//	    scan.NewItem("Ideas", scan.GenerateOptions{Prompt: "things to say at lunch"}),
//	})
//	ctrl.Start()
//
//	// Wire any discrete input to Press.
//	ctrl.Press("keyboard")
package scan
