package cli

import (
	"context"
	"fmt"
	"io"

	"atsquick/internal/client"
	"atsquick/internal/types"

	"github.com/spf13/cobra"
)

var contactMessage types.ContactMessage

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Send a message to the ATSQuick team",
	Long: `Send a contact message through the server. The server verifies the
reCAPTCHA token before delivering the message by email.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		return sendContact(cmd.Context(), client.New(cfg.Client), contactMessage, cmd.OutOrStdout())
	},
}

func init() {
	contactCmd.Flags().StringVar(&contactMessage.Name, "name", "", "Your name")
	contactCmd.Flags().StringVar(&contactMessage.Email, "email", "", "Your email address")
	contactCmd.Flags().StringVar(&contactMessage.Message, "message", "", "Message text")
	contactCmd.Flags().StringVar(&contactMessage.RecaptchaToken, "token", "", "reCAPTCHA token")
}

// sendContact submits msg and prints the server's answer
func sendContact(ctx context.Context, c *client.Client, msg types.ContactMessage, w io.Writer) error {
	resp, err := c.SendContact(ctx, msg)
	if resp.Message != "" {
		fmt.Fprintln(w, resp.Message)
	}
	return err
}
