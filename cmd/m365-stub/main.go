// Command m365-stub is an offline stand-in for the Microsoft 365 MCP server. It
// answers every tool the CLI uses with canned data so the CLI and m365d can be
// exercised without a tenant:
//
//	[server]
//	command = "m365-stub"
//	args = ["--fixtures", "/path/to/fixtures.yaml"]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rexliu/m365/pkg/core"
	"github.com/rexliu/m365/pkg/logging"
	"github.com/rexliu/m365/pkg/mcp"
)

func main() {
	var (
		fixtures string
		login    bool
	)
	cmd := &cobra.Command{
		Use:           "m365-stub",
		Short:         "Offline MCP server with canned Microsoft 365 replies",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if login {
				fmt.Fprintln(cmd.OutOrStdout(), "To sign in, use a web browser to open the page https://microsoft.com/devicelogin and enter the code STUB-0000 to authenticate.")
				return nil
			}
			logger := logging.New("m365-stub")
			srv := mcp.NewServer("m365-stub", "0.1.0", logger)
			defaults().Register(srv)
			if fixtures != "" {
				fx, err := mcp.LoadFixtures(fixtures)
				if err != nil {
					return err
				}
				fx.Register(srv)
			}
			return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "YAML file of tool replies overriding the defaults")
	cmd.Flags().BoolVar(&login, "login", false, "Print a fake device-code prompt and exit")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "m365-stub: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func defaults() mcp.Fixtures {
	empty := mcp.Fixture{Result: map[string]any{"value": []any{}}}
	return mcp.Fixtures{
		core.ToolVerifyLogin: {Result: map[string]any{
			"success":  true,
			"userData": map[string]any{"displayName": "Stub User", "userPrincipalName": "stub@example.com"},
		}},
		core.ToolListAccounts: {Result: map[string]any{"accounts": []any{
			map[string]any{"id": "stub-account", "username": "stub@example.com", "selected": true},
		}}},
		core.ToolGetCurrentUser: {Result: map[string]any{
			"id":                "00000000-0000-0000-0000-000000000000",
			"displayName":       "Stub User",
			"mail":              "stub@example.com",
			"userPrincipalName": "stub@example.com",
		}},
		core.ToolListMailMessages: {Result: map[string]any{"value": []any{
			map[string]any{"id": "msg1", "subject": "Welcome", "from": map[string]any{"emailAddress": map[string]any{"address": "it@example.com"}}},
		}}},
		core.ToolGetMailMessage:      {Result: map[string]any{"id": "msg1", "subject": "Welcome", "body": map[string]any{"contentType": "text", "content": "Hello from the stub."}}},
		core.ToolSendMail:            {Text: "Mail sent successfully"},
		core.ToolListCalendarEvents:  empty,
		core.ToolCreateCalendarEvent: {Result: map[string]any{"id": "event1"}},
		core.ToolListFolderFiles:     empty,
		core.ToolListTodoTaskLists:   {Result: map[string]any{"value": []any{map[string]any{"id": "list1", "displayName": "Tasks"}}}},
		core.ToolListTodoTasks:       empty,
		core.ToolCreateTodoTask:      {Result: map[string]any{"id": "task1", "status": "notStarted"}},
		core.ToolListOutlookContacts: empty,
		core.ToolSearchPeople:        empty,
	}
}
