package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// User is a user as returned by the admin API
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
}

// UserListResponse represents the list users response
type UserListResponse struct {
	Users []User `json:"users"`
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long:  `Commands for listing, creating and deleting user accounts.`,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().Request("GET", "/admin/users", nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, data)
		}

		var resp UserListResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		if len(resp.Users) == 0 {
			fmt.Fprintln(out, "No users found.")
			return nil
		}

		rows := make([][]string, len(resp.Users))
		for i, u := range resp.Users {
			rows[i] = []string{u.ID, u.Username, u.Email, strings.Join(u.Roles, ",")}
		}
		printTable(out, []string{"ID", "USERNAME", "EMAIL", "ROLES"}, rows)
		return nil
	},
}

var (
	userCreateUsername    string
	userCreatePassword    string
	userCreateDisplayName string
	userCreateEmail       string
	userCreateRoles       []string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		reqBody := map[string]any{
			"username": userCreateUsername,
			"password": userCreatePassword,
		}
		if userCreateDisplayName != "" {
			reqBody["display_name"] = userCreateDisplayName
		}
		if userCreateEmail != "" {
			reqBody["email"] = userCreateEmail
		}
		if len(userCreateRoles) > 0 {
			reqBody["roles"] = userCreateRoles
		}

		data, err := newClient().Request("POST", "/admin/users", reqBody)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, data)
		}

		var resp struct {
			User User `json:"user"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		fmt.Fprintf(out, "User '%s' created with ID %s.\n", resp.User.Username, resp.User.ID)
		return nil
	},
}

var userDeleteID string

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a user and its sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().Request("DELETE", "/admin/users/"+userDeleteID, nil)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if output == "json" {
			return printJSON(out, data)
		}
		fmt.Fprintf(out, "User '%s' deleted.\n", userDeleteID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userDeleteCmd)

	userCreateCmd.Flags().StringVar(&userCreateUsername, "username", "", "Username (required)")
	userCreateCmd.Flags().StringVar(&userCreatePassword, "password", "", "Password (required)")
	userCreateCmd.Flags().StringVar(&userCreateDisplayName, "display-name", "", "Display name")
	userCreateCmd.Flags().StringVar(&userCreateEmail, "email", "", "Email address")
	userCreateCmd.Flags().StringSliceVar(&userCreateRoles, "role", nil, "Role to grant (repeatable)")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userDeleteCmd.Flags().StringVar(&userDeleteID, "id", "", "User ID (required)")
	_ = userDeleteCmd.MarkFlagRequired("id")
}
