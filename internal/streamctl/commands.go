package streamctl

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const (
	envServer     = "STREAMCTL_SERVER"
	envToken      = "STREAMCTL_TOKEN"
	defaultServer = "http://localhost:8080"
)

// NewRootCommand builds the streamctl command tree.
func NewRootCommand() *cobra.Command {
	var (
		server  string
		token   string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:           "streamctl",
		Short:         "Operate log streams on a running server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&server, "server", envOr(envServer, defaultServer), "server base URL")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv(envToken), "bearer token")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	client := func() *Client { return NewClient(server, token, timeout) }

	call := func(method, path string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			p := path
			if len(args) == 1 {
				p = apiPrefix + "/" + args[0] + path
			}
			data, err := client().Do(cmd.Context(), method, p)
			if err != nil {
				return err
			}
			out, err := indent(data)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
	}

	var page, limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List running streams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(http.MethodGet, fmt.Sprintf("%s?page=%d&limit=%d", apiPrefix, page, limit))(cmd, args)
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&limit, "limit", 15, "streams per page")

	root.AddCommand(
		list,
		&cobra.Command{Use: "health", Short: "Summarize stream states", Args: cobra.NoArgs, RunE: call(http.MethodGet, apiPrefix+"/health")},
		&cobra.Command{Use: "stats", Short: "Show pipeline counters", Args: cobra.NoArgs, RunE: call(http.MethodGet, apiPrefix+"/stats")},
		&cobra.Command{Use: "get <connection-id>", Short: "Show one stream", Args: cobra.ExactArgs(1), RunE: call(http.MethodGet, "")},
		&cobra.Command{Use: "start <connection-id>", Short: "Start polling a connection", Args: cobra.ExactArgs(1), RunE: call(http.MethodPost, "/start")},
		&cobra.Command{Use: "stop <connection-id>", Short: "Stop polling and mark the connection paused", Args: cobra.ExactArgs(1), RunE: call(http.MethodPost, "/stop")},
		&cobra.Command{Use: "pause <connection-id>", Short: "Pause a running stream", Args: cobra.ExactArgs(1), RunE: call(http.MethodPost, "/pause")},
		&cobra.Command{Use: "resume <connection-id>", Short: "Resume a paused stream", Args: cobra.ExactArgs(1), RunE: call(http.MethodPost, "/resume")},
		&cobra.Command{Use: "remove <connection-id>", Short: "Stop and soft delete a connection", Args: cobra.ExactArgs(1), RunE: call(http.MethodDelete, "")},
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
