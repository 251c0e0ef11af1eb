package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidehub/hubchat/bus"
	"github.com/tidehub/hubchat/mdterm"
)

var sendCmd = &cobra.Command{
	Use:     "send [text]",
	Short:   "Send one message and print the response",
	GroupID: "chat",
	Long: `Send a single message to the hub, wait for the streamed response to
complete, and print it. Resumes the stored conversation unless --new is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var (
	sendRaw   bool
	sendFresh bool
)

func init() {
	sendCmd.Flags().BoolVar(&sendRaw, "raw", false, "Print the raw markdown instead of rendering for the terminal")
	sendCmd.Flags().BoolVar(&sendFresh, "new", false, "Start a new conversation instead of resuming the stored one")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	if sendFresh {
		_ = rt.store.Reset()
	} else {
		rt.resumeConversation()
	}

	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("message text is empty")
	}

	// A one-shot send cannot collect answers interactively; stop the
	// stream instead of hanging on a paused agent run.
	rt.bus.Subscribe(bus.EventQuestionPending, func(_ *bus.Event) {
		fmt.Fprintln(os.Stderr, "(assistant asked a question; run `hubchat chat` to answer interactively)")
		rt.client.Abort()
	})

	msg, err := rt.client.Send(cmd.Context(), text)
	if err != nil {
		return err
	}
	rt.persistConversation()

	out := msg.Content
	if !sendRaw {
		out = mdterm.Render(out)
	}
	fmt.Println(strings.TrimRight(out, "\n"))
	return nil
}
