package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphercomms/internal/domain"
)

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id> <message-id>",
		Short: "Delete one of your messages",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			err = appCtx.Conversations.DeleteMessage(cmd.Context(), user, domain.ConversationID(args[0]), domain.MessageID(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}
