package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphercomms/internal/crypto"
	"ciphercomms/internal/domain"
	"ciphercomms/internal/services/keys"
)

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the keys on this device",
	}
	cmd.AddCommand(keysSyncCmd(), keysFingerprintCmd(), keysClearCmd())
	return cmd
}

func keysSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile local keys with the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := reconcile(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key state: %s\n", ring.State)
			if fp, err := keys.Fingerprint(ring); err == nil {
				fmt.Fprintf(out, "Fingerprint: %s\n", fp)
			}
			if !ring.CanDecrypt() {
				fmt.Fprintln(out, "This device has no private key for your published key; messages will not decrypt here.")
			}
			return nil
		},
	}
}

func keysFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [user]",
		Short: "Print the fingerprint of a published key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var user domain.UserID
			if len(args) == 1 {
				user = domain.UserID(args[0])
			} else {
				var err error
				if user, err = currentUser(); err != nil {
					return err
				}
			}
			pub, ok, err := appCtx.Directory.PublicKey(cmd.Context(), user)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s has no published key", user)
			}
			fp, err := crypto.Fingerprint(pub)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fp)
			return nil
		},
	}
}

func keysClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the keys stored on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			if err := appCtx.Keys.ClearLocalKeys(user); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Local keys deleted.")
			return nil
		},
	}
}

// reconcile runs key reconciliation for the current user.
func reconcile(cmd *cobra.Command) (domain.KeyRing, error) {
	if err := requirePassphrase(); err != nil {
		return domain.KeyRing{}, err
	}
	user, err := currentUser()
	if err != nil {
		return domain.KeyRing{}, err
	}
	return appCtx.Keys.Reconcile(cmd.Context(), user)
}
