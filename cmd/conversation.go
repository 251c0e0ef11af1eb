package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidehub/hubchat/chat"
	"github.com/tidehub/hubchat/config"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Short:   "Inspect or reset the stored conversation",
	GroupID: "chat",
}

var conversationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored conversation ID",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		state, err := store.Load()
		if err != nil {
			return err
		}
		if state.ConversationID == "" {
			fmt.Println("No stored conversation; the next send starts a new one.")
			return nil
		}
		fmt.Println(state.ConversationID)
		return nil
	},
}

var conversationResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored conversation ID",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Println("Conversation reset; the next send starts a new one.")
		return nil
	},
}

func init() {
	conversationCmd.AddCommand(conversationShowCmd)
	conversationCmd.AddCommand(conversationResetCmd)
	rootCmd.AddCommand(conversationCmd)
}

func openStore() (*chat.ConversationStore, error) {
	statePath, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	return chat.NewConversationStore(statePath), nil
}
