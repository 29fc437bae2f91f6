package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	sessionCmd.AddCommand(sessionSetCmd)
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the stored portal session cookie.",
}

var sessionSetCmd = &cobra.Command{
	Use:   "set <cookie>",
	Short: "Save the full session cookie string, use '-' to read it from stdin.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cookie := args[0]
		if cookie == "-" {
			buf, err := io.ReadAll(os.Stdin)
			if err != nil {
				fatal(err)
			}
			cookie = string(buf)
		}

		res, err := client.R().
			SetContext(cmd.Context()).
			SetHeader("content-type", "application/json").
			SetBody(map[string]string{"sessionCookie": cookie}).
			Post("/api/settings/session-cookie")
		if err != nil {
			fatal(err)
		}
		if !res.IsSuccess() {
			fatal(fmt.Errorf("server replied %d: %s", res.StatusCode(), res.String()))
		}
		fmt.Println("session cookie saved")
	},
}
