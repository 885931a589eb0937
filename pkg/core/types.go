package core

import "encoding/json"

// Request names one remote tool and its arguments. It is built per invocation and
// not modified after it is handed to the gateway.
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// Outcome classifies how a call ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeSpawn     Outcome = "spawn"
	OutcomeMalformed Outcome = "malformed"
	OutcomeRemote    Outcome = "remote"
)

// CallRecord is one entry in the local call history.
type CallRecord struct {
	ID         string          `json:"id"`
	Method     string          `json:"method"`
	Params     json.RawMessage `json:"params,omitempty"`
	Outcome    Outcome         `json:"outcome"`
	Error      string          `json:"error,omitempty"`
	StartedAt  int64           `json:"startedAt"`
	DurationMS int64           `json:"durationMs"`
}

// ItemBody is a Graph itemBody.
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// EmailAddress is a Graph emailAddress.
type EmailAddress struct {
	Address string `json:"address"`
}

// Recipient wraps an EmailAddress.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// Message is the subset of a Graph message the CLI sends.
type Message struct {
	Subject      string      `json:"subject"`
	Body         ItemBody    `json:"body"`
	ToRecipients []Recipient `json:"toRecipients"`
}

// SendMailBody is the request body of send-mail.
type SendMailBody struct {
	Message Message `json:"message"`
}

// DateTimeTimeZone pairs a local date-time string with an IANA or Windows zone name.
type DateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// Event is the request body of create-calendar-event.
type Event struct {
	Subject string           `json:"subject"`
	Start   DateTimeTimeZone `json:"start"`
	End     DateTimeTimeZone `json:"end"`
	Body    *ItemBody        `json:"body,omitempty"`
}

// TodoTask is the request body of create-todo-task.
type TodoTask struct {
	Title       string            `json:"title"`
	DueDateTime *DateTimeTimeZone `json:"dueDateTime,omitempty"`
}
