package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tidehub/hubchat/bus"
	"github.com/tidehub/hubchat/channel"
	"github.com/tidehub/hubchat/logger"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Short:   "Start an interactive chat session",
	GroupID: "chat",
	Long: `Start an interactive chat session with the hub.

Inside a terminal this opens the TUI; when stdin is piped it falls back to a
plain line-based prompt. Ctrl+C aborts the in-flight response; a second
Ctrl+C exits.`,
	RunE: runChat,
}

var chatFresh bool

func init() {
	chatCmd.Flags().BoolVar(&chatFresh, "new", false, "Start a new conversation instead of resuming the stored one")
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	if chatFresh {
		_ = rt.store.Reset()
	} else {
		rt.resumeConversation()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Questions arrive mid-stream and block the reduce loop until answered;
	// the hub is paused waiting for the follow-up call anyway.
	ch := channel.NewCLIChannel()
	rt.bus.SubscribeAll(func(ev *bus.Event) {
		ch.Render(ev)
		if ev.Type == bus.EventQuestionPending && ev.Group != nil {
			answers, askErr := ch.AskUser(ctx, ev.Group)
			if askErr != nil {
				logger.Warn("question group dismissed, stopping stream", "group", ev.Group.GroupID, "error", askErr)
				rt.client.Abort()
				return
			}
			rt.client.SubmitResponse(ctx, ev.Group.GroupID, answers)
		}
	})

	if err := ch.Start(ctx); err != nil {
		return err
	}
	defer ch.Stop()

	// First SIGINT aborts the in-flight response, the next one exits. The
	// TUI re-raises SIGINT on quit, which lands on the exit path here.
	var streaming atomic.Bool
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				if streaming.Load() {
					rt.client.Abort()
					continue
				}
				cancel()
				return
			}
		}
	}()

	ch.Status(rt.client.ConversationID(), rt.client.EstimateContextTokens())

	for {
		select {
		case <-ctx.Done():
			rt.persistConversation()
			return nil
		case in, ok := <-ch.Inputs():
			if !ok {
				rt.persistConversation()
				return nil
			}
			ch.Echo(in.Text)
			streaming.Store(true)
			_, sendErr := rt.client.Send(ctx, in.Text)
			streaming.Store(false)
			if sendErr != nil {
				logger.Warn("turn failed", "error", sendErr)
			}
			ch.Status(rt.client.ConversationID(), rt.client.EstimateContextTokens())
			rt.persistConversation()
		}
	}
}
