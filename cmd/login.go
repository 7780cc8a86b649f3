package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/khanhnv2901/wisafe/internal/auth"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as the expert operator and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("WISAFE_PASSWORD")
		}
		if password == "" {
			password, err = promptLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
			if err != nil {
				return err
			}
		}

		c := appCtx.newClient()
		if err := c.Login(cmd.Context(), username, password); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s (%s)\n", colorSuccess("✓"), username, c.BaseURL())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the refresh token and clear the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		if err := appCtx.newClient().Logout(cmd.Context()); err != nil {
			// The local session is gone either way.
			appCtx.Logger.Warnw("server logout failed", "error", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Logged out\n", colorSuccess("✓"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the operator the stored session belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		username, err := appCtx.newClient().Verify(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), username)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for auth.password_hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptLine(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "expert", "operator username")
	loginCmd.Flags().StringP("password", "p", "", "operator password (default: WISAFE_PASSWORD or prompt)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func promptLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}
