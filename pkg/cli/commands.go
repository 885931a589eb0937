package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rexliu/m365/pkg/config"
	"github.com/rexliu/m365/pkg/core"
)

// toolCommand is a leaf without arguments that calls method with no parameters.
func (a *app) toolCommand(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, method, nil)
		},
	}
}

func (a *app) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with a device code",
		Long: `Start the server's interactive sign-in. The server prints a URL and a code;
complete the flow in a browser. Tokens are cached by the server, not by m365.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Starting device code login...")
			var extra []string
			if a.cfg.Server.LoginFlag != "" {
				extra = append(extra, a.cfg.Server.LoginFlag)
			}
			return a.launcher.Launch(cmd.Context(), extra...)
		},
	}
}

func (a *app) mailCommand() *cobra.Command {
	var (
		top    int
		folder string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolListMailMessages, core.MailListParams(top, folder))
		},
	}
	list.Flags().IntVar(&top, "top", 10, "Maximum number of messages")
	list.Flags().StringVar(&folder, "folder", "", "Folder ID")

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Read a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolGetMailMessage, core.MailReadParams(args[0]))
		},
	}

	var to, subject, body string
	send := &cobra.Command{
		Use:     "send",
		Short:   "Send a plain-text message",
		Example: `  m365 mail send --to john@example.com --subject "Hello" --body "How are you?"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolSendMail, core.SendMailParams(to, subject, body))
		},
	}
	send.Flags().StringVar(&to, "to", "", "Recipient address")
	send.Flags().StringVar(&subject, "subject", "", "Subject line")
	send.Flags().StringVar(&body, "body", "", "Message text")
	markRequired(send, "to", "subject", "body")

	return groupCommand("mail", "Mail commands", list, read, send)
}

func (a *app) calendarCommand() *cobra.Command {
	var top int
	list := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolListCalendarEvents, core.TopParams(top))
		},
	}
	list.Flags().IntVar(&top, "top", 10, "Maximum number of events")

	var subject, start, end, body, timeZone string
	create := &cobra.Command{
		Use:     "create",
		Short:   "Create an event",
		Example: `  m365 calendar create --subject "Standup" --start 2026-02-01T09:00:00 --end 2026-02-01T09:30:00`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			tz := timeZone
			if tz == "" {
				tz = a.cfg.TimeZone
			}
			return a.invoke(cmd, core.ToolCreateCalendarEvent, core.CreateEventParams(subject, start, end, body, tz))
		},
	}
	create.Flags().StringVar(&subject, "subject", "", "Event subject")
	create.Flags().StringVar(&start, "start", "", "Start date-time (ISO 8601, local to --timezone)")
	create.Flags().StringVar(&end, "end", "", "End date-time (ISO 8601, local to --timezone)")
	create.Flags().StringVar(&body, "body", "", "Event description")
	create.Flags().StringVar(&timeZone, "timezone", "", "Time zone name (default from config, "+config.DefaultTimeZone+")")
	markRequired(create, "subject", "start", "end")

	return groupCommand("calendar", "Calendar commands", list, create)
}

func (a *app) filesCommand() *cobra.Command {
	var path string
	list := &cobra.Command{
		Use:   "list",
		Short: "List files in a OneDrive folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolListFolderFiles, core.FilesListParams(path))
		},
	}
	list.Flags().StringVar(&path, "path", "", "Folder item (default root)")

	return groupCommand("files", "OneDrive commands", list)
}

func (a *app) tasksCommand() *cobra.Command {
	lists := &cobra.Command{
		Use:   "lists",
		Short: "List task lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolListTodoTaskLists, nil)
		},
	}

	get := &cobra.Command{
		Use:   "get <list-id>",
		Short: "List tasks in a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolListTodoTasks, core.TodoTasksParams(args[0]))
		},
	}

	var title, due string
	create := &cobra.Command{
		Use:   "create <list-id>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			return a.invoke(cmd, core.ToolCreateTodoTask, core.CreateTodoTaskParams(args[0], title, due, a.cfg.TimeZone))
		},
	}
	create.Flags().StringVar(&title, "title", "", "Task title")
	create.Flags().StringVar(&due, "due", "", "Due date (ISO 8601)")
	markRequired(create, "title")

	return groupCommand("tasks", "To Do commands", lists, get, create)
}

func (a *app) contactsCommand() *cobra.Command {
	var top int
	list := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolListOutlookContacts, core.TopParams(top))
		},
	}
	list.Flags().IntVar(&top, "top", 20, "Maximum number of contacts")

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search people by name or address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.invoke(cmd, core.ToolSearchPeople, core.SearchPeopleParams(args[0]))
		},
	}

	return groupCommand("contacts", "Contacts commands", list, search)
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}
