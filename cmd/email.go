package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// emailCmd represents the email command
var emailCmd = &cobra.Command{
	Use:   "email <address>",
	Short: "Emails the taste report",
	Long:  `Sends the full taste report to the given address via SendGrid.`,
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("from") == "" {
			return fmt.Errorf("required flag(s) \"from\" not set")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := sendReport(args[0]); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	var dryRun bool
	emailCmd.Flags().BoolVarP(&dryRun, "dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dryRun", emailCmd.Flags().Lookup("dry_run"))
}

func sendReport(to string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	s, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	analyses, err := gatherReport(s, user)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Taste report for %s, %s", user, time.Now().Format("2006-01-02"))
	body := reportHTML(user, analyses)

	if viper.GetBool("dryRun") {
		fmt.Printf("Would have sent email: \nsubject: %s\n%s\n", subject, body)
		return nil
	}

	apiKey := viper.GetString("sendgrid_api_key")
	if apiKey == "" {
		return fmt.Errorf("sendgrid_api_key must be set in order to send emails")
	}

	from := mail.NewEmail("tasteline", viper.GetString("from"))
	message := mail.NewSingleEmail(from, subject, mail.NewEmail(to, to), subject, body)
	client := sendgrid.NewSendClient(apiKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sending report: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sending report: sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}

	fmt.Printf("Sent taste report to %s\n", to)
	return nil
}

func reportHTML(user string, analyses []Analysis) string {
	out := `
<html>
  <head>
<style>
td {
  padding: 0.1em 0.2em;
}
table, th, td {
  border: 1px solid black;
  border-collapse: collapse;
}
</style>
  </head>
  <body>
`
	for _, a := range analyses {
		out += "<div>\n"
		out += fmt.Sprintf("<h2>%s for %s:</h2>\n", a.name, user)

		if len(a.results) <= 1 {
			out += "<div>Nothing here yet.</div>\n"
		} else {
			out += "<table>\n<thead>\n<tr>\n"
			for _, header := range a.results[0] {
				out += fmt.Sprintf("<th>%s</th>", header)
			}
			out += "</tr>\n</thead>\n<tbody>\n"
			for _, row := range a.results[1:] {
				out += "<tr>\n"
				for _, column := range row {
					out += fmt.Sprintf("<td>%s</td>\n", column)
				}
				out += "</tr>\n"
			}
			out += "</tbody>\n</table>\n"
		}
		out += fmt.Sprintf("<div>%s</div>\n</div>\n", a.summary)
	}
	out += "</body>\n</html>\n"
	return out
}
