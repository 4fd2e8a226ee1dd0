package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionRevokeUser string

var sessionRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke every session of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().Request("DELETE", "/admin/users/"+sessionRevokeUser+"/sessions", nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, data)
		}

		var resp struct {
			Revoked int64 `json:"sessions_revoked"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Fprintf(out, "Revoked %d session(s) of user '%s'.\n", resp.Revoked, sessionRevokeUser)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionRevokeCmd)

	sessionRevokeCmd.Flags().StringVar(&sessionRevokeUser, "user", "", "User ID (required)")
	_ = sessionRevokeCmd.MarkFlagRequired("user")
}
