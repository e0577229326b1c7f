package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ciphercomms/internal/domain"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start and list conversations",
	}
	cmd.AddCommand(chatNewCmd(), chatListCmd())
	return cmd
}

func chatNewCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "new [peer]",
		Short: "Start or reuse a conversation with a peer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			self, err := currentUser()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var peer domain.UserID
			switch {
			case email != "":
				rec, err := appCtx.Conversations.LookupUser(ctx, self, email)
				if err != nil {
					return err
				}
				peer = rec.ID
			case len(args) == 1:
				peer = domain.UserID(args[0])
			default:
				return fmt.Errorf("peer id or --email required")
			}

			conv, err := appCtx.Conversations.CreateConversation(ctx, self, peer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation with %s: %s\n", peer, conv.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "find the peer by email")
	return cmd
}

func chatListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your conversations, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			self, err := currentUser()
			if err != nil {
				return err
			}
			list, err := appCtx.Conversations.ListConversations(cmd.Context(), self)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.PeerName, c.Preview, c.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}
