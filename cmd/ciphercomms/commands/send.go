package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphercomms/internal/domain"
)

// send <chat> <message>: encrypt for every participant and store.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat-id> <message>",
		Short: "Encrypt and send a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := reconcile(cmd)
			if err != nil {
				return err
			}
			rec, err := appCtx.Conversations.SendMessage(cmd.Context(), ring.UserID, domain.ConversationID(args[0]), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", rec.ID)
			return nil
		},
	}
}
