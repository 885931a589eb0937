package core

// Tool names exposed by the MCP server.
const (
	ToolVerifyLogin         = "verify-login"
	ToolListAccounts        = "list-accounts"
	ToolGetCurrentUser      = "get-current-user"
	ToolListMailMessages    = "list-mail-messages"
	ToolGetMailMessage      = "get-mail-message"
	ToolSendMail            = "send-mail"
	ToolListCalendarEvents  = "list-calendar-events"
	ToolCreateCalendarEvent = "create-calendar-event"
	ToolListFolderFiles     = "list-folder-files"
	ToolListTodoTaskLists   = "list-todo-task-lists"
	ToolListTodoTasks       = "list-todo-tasks"
	ToolCreateTodoTask      = "create-todo-task"
	ToolListOutlookContacts = "list-outlook-contacts"
	ToolSearchPeople        = "search-people"
)

const (
	contentTypeText = "Text"
	myDrive         = "me"
	rootItem        = "root"
)

// TopParams returns {"top": top}, or an empty mapping when top is not positive.
func TopParams(top int) map[string]any {
	params := map[string]any{}
	if top > 0 {
		params["top"] = top
	}
	return params
}

// MailListParams builds list-mail-messages arguments.
func MailListParams(top int, folder string) map[string]any {
	params := TopParams(top)
	if folder != "" {
		params["folderId"] = folder
	}
	return params
}

// MailReadParams builds get-mail-message arguments.
func MailReadParams(messageID string) map[string]any {
	return map[string]any{"messageId": messageID}
}

// SendMailParams builds send-mail arguments for a plain-text message to one recipient.
func SendMailParams(to, subject, body string) map[string]any {
	msg := SendMailBody{
		Message: Message{
			Subject: subject,
			Body:    ItemBody{ContentType: contentTypeText, Content: body},
			ToRecipients: []Recipient{
				{EmailAddress: EmailAddress{Address: to}},
			},
		},
	}
	return map[string]any{"body": msg}
}

// CreateEventParams builds create-calendar-event arguments. start and end share
// timeZone; description is omitted when empty.
func CreateEventParams(subject, start, end, description, timeZone string) map[string]any {
	event := Event{
		Subject: subject,
		Start:   DateTimeTimeZone{DateTime: start, TimeZone: timeZone},
		End:     DateTimeTimeZone{DateTime: end, TimeZone: timeZone},
	}
	if description != "" {
		event.Body = &ItemBody{ContentType: contentTypeText, Content: description}
	}
	return map[string]any{"body": event}
}

// FilesListParams builds list-folder-files arguments for the signed-in user's drive.
func FilesListParams(path string) map[string]any {
	item := path
	if item == "" {
		item = rootItem
	}
	return map[string]any{
		"driveId":     myDrive,
		"driveItemId": item,
	}
}

// TodoTasksParams builds list-todo-tasks arguments.
func TodoTasksParams(listID string) map[string]any {
	return map[string]any{"todoTaskListId": listID}
}

// CreateTodoTaskParams builds create-todo-task arguments; due is omitted when empty.
func CreateTodoTaskParams(listID, title, due, timeZone string) map[string]any {
	task := TodoTask{Title: title}
	if due != "" {
		task.DueDateTime = &DateTimeTimeZone{DateTime: due, TimeZone: timeZone}
	}
	return map[string]any{
		"todoTaskListId": listID,
		"body":           task,
	}
}

// SearchPeopleParams builds search-people arguments.
func SearchPeopleParams(query string) map[string]any {
	return map[string]any{"search": query}
}
