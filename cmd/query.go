package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the running relay service",
	}
	cmd.AddCommand(
		queryPendingCmd(),
		queryMessagesCmd(),
	)
	return cmd
}

func queryPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show liveness and the pending-message count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(cmd, "/healthz")
		},
	}
}

func queryMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "Dump all tracked messages with their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(cmd, "/messages")
		},
	}
}

func queryAPI(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	url := fmt.Sprintf("http://%s%s", cfg.API.ListenAddr, path)
	resp, err := http.Get(url)
	if err != nil {
		return errors.Wrapf(err, "failed to query %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("unexpected status %s from %s", resp.Status, url)
	}
	_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
	return err
}
