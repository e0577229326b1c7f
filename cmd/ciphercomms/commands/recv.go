package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"ciphercomms/internal/domain"
)

// recv <chat>: decrypt the conversation history, optionally following it.
func recvCmd() *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "recv <chat-id>",
		Short: "Decrypt and print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := reconcile(cmd)
			if err != nil {
				return err
			}
			conv := domain.ConversationID(args[0])
			out := cmd.OutOrStdout()

			if !follow {
				msgs, err := appCtx.Conversations.History(cmd.Context(), ring, conv)
				if err != nil {
					return err
				}
				for _, m := range msgs {
					printMessage(out, m)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			feed, unsub, err := appCtx.Conversations.ReceiveMessages(ctx, ring, conv)
			if err != nil {
				return err
			}
			defer unsub()

			seen := make(map[domain.MessageID]bool)
			for snapshot := range feed {
				for _, m := range snapshot {
					if seen[m.ID] {
						continue
					}
					seen[m.ID] = true
					printMessage(out, m)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new messages until interrupted")
	return cmd
}

func printMessage(w io.Writer, m domain.DecryptedMessage) {
	fmt.Fprintf(w, "%s [%s] %s: %s\n", m.Timestamp.Local().Format("15:04:05"), m.ID, m.SenderDisplayName, m.Text)
}
