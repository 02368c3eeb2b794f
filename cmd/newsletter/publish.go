package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/itchan-dev/newsletter/internal/apiclient"
	"github.com/itchan-dev/newsletter/internal/domain"
)

// newPublishCmd sends an issue to a running API, so it needs no local config.
func newPublishCmd() *cobra.Command {
	var (
		baseURL  string
		username string
		password string
		subject  string
		file     string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a newsletter issue through a running API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("NEWSLETTER_OPERATOR_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and --password (or NEWSLETTER_OPERATOR_PASSWORD) are required")
			}

			content, err := readContent(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			client := apiclient.New(baseURL)
			report, err := client.Publish(cmd.Context(),
				domain.Credentials{Username: username, Password: password},
				domain.NewsletterIssue{Subject: subject, Content: content, Format: domain.ContentFormat(format)})

			var apiErr *apiclient.APIError
			if err != nil && !errors.As(err, &apiErr) {
				return err
			}
			if err == nil || apiErr.StatusCode == http.StatusBadGateway {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					return encErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8000", "base URL of the newsletter API")
	cmd.Flags().StringVar(&username, "username", os.Getenv("NEWSLETTER_OPERATOR_USERNAME"), "operator username")
	cmd.Flags().StringVar(&password, "password", "", "operator password")
	cmd.Flags().StringVar(&subject, "subject", "", "issue subject")
	cmd.Flags().StringVar(&file, "file", "-", "content file, - for stdin")
	cmd.Flags().StringVar(&format, "format", "markdown", "content format: html or markdown")
	return cmd
}

func readContent(stdin io.Reader, file string) (string, error) {
	if file == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read content from stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read content file: %w", err)
	}
	return string(b), nil
}
