package main

import (
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-scanboard/internal/log"
	"github.com/teslashibe/go-scanboard/pkg/announce"
	"github.com/teslashibe/go-scanboard/pkg/tts"
)

func newSayCmd(opts *options) *cobra.Command {
	var (
		channel string
		silent  bool
	)

	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Speak one announcement through the queue and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("nothing to say")
			}
			ch := announce.Channel(channel)
			if ch != announce.ChannelPersonal && ch != announce.ChannelSystem {
				return errors.New("channel must be personal or system")
			}

			cfg := opts.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}

			synth, err := tts.NewBackend(
				tts.WithBaseURL(cfg.BackendURL),
				tts.WithAPIKey(cfg.APIKey),
				tts.WithTimeout(cfg.Timeout),
				tts.WithLogger(log.L()),
			)
			if err != nil {
				return err
			}
			defer synth.Close()

			var player announce.Player = announce.NewExecPlayer()
			if silent {
				player = announce.NullPlayer{}
			}
			ann := announce.New(synth, announce.WithPlayer(player), announce.WithLogger(log.L()))
			defer ann.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return ann.Announce(ctx, text, ch, false)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", string(announce.ChannelSystem), "personal or system")
	cmd.Flags().BoolVar(&silent, "silent", false, "synthesize without playing")
	return cmd
}
