package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphercomms/internal/domain"
	"ciphercomms/internal/services/keys"
)

func registerCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish your profile and set up your keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			user, err := currentUser()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			rec := domain.UserRecord{ID: user, Email: email, DisplayName: name}
			if err := appCtx.Directory.PutProfile(ctx, rec); err != nil {
				return err
			}
			ring, err := appCtx.Keys.Reconcile(ctx, user)
			if err != nil {
				return err
			}
			fp, err := keys.Fingerprint(ring)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s).\nKey state: %s\nFingerprint: %s\n", user, rec.Email, ring.State, fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address others can find you by")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
