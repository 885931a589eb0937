package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	t.Run("top omitted when zero", func(t *testing.T) {
		assertJSON(t, `{}`, TopParams(0))
		assertJSON(t, `{"top":5}`, TopParams(5))
	})

	t.Run("mail list folder", func(t *testing.T) {
		assertJSON(t, `{"top":10,"folderId":"inbox"}`, MailListParams(10, "inbox"))
	})

	t.Run("mail read", func(t *testing.T) {
		assertJSON(t, `{"messageId":"AAMk="}`, MailReadParams("AAMk="))
	})

	t.Run("send mail", func(t *testing.T) {
		assertJSON(t, `{"body":{"message":{
			"subject":"Hello",
			"body":{"contentType":"Text","content":"How are you?"},
			"toRecipients":[{"emailAddress":{"address":"john@example.com"}}]}}}`,
			SendMailParams("john@example.com", "Hello", "How are you?"))
	})

	t.Run("event without description", func(t *testing.T) {
		assertJSON(t, `{"body":{
			"subject":"Standup",
			"start":{"dateTime":"2026-02-01T09:00:00","timeZone":"America/Chicago"},
			"end":{"dateTime":"2026-02-01T09:30:00","timeZone":"America/Chicago"}}}`,
			CreateEventParams("Standup", "2026-02-01T09:00:00", "2026-02-01T09:30:00", "", "America/Chicago"))
	})

	t.Run("event with description", func(t *testing.T) {
		params := CreateEventParams("Review", "s", "e", "agenda", "UTC")
		event := params["body"].(Event)
		require.NotNil(t, event.Body)
		assert.Equal(t, ItemBody{ContentType: "Text", Content: "agenda"}, *event.Body)
	})

	t.Run("files default root", func(t *testing.T) {
		assertJSON(t, `{"driveId":"me","driveItemId":"root"}`, FilesListParams(""))
		assertJSON(t, `{"driveId":"me","driveItemId":"Documents"}`, FilesListParams("Documents"))
	})

	t.Run("todo task", func(t *testing.T) {
		assertJSON(t, `{"todoTaskListId":"list1","body":{"title":"Review budget"}}`,
			CreateTodoTaskParams("list1", "Review budget", "", "America/Chicago"))
		assertJSON(t, `{"todoTaskListId":"list1","body":{"title":"Review budget",
			"dueDateTime":{"dateTime":"2026-01-20","timeZone":"America/Chicago"}}}`,
			CreateTodoTaskParams("list1", "Review budget", "2026-01-20", "America/Chicago"))
	})

	t.Run("lookups", func(t *testing.T) {
		assertJSON(t, `{"todoTaskListId":"L"}`, TodoTasksParams("L"))
		assertJSON(t, `{"search":"John"}`, SearchPeopleParams("John"))
	})
}

func TestRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "ids from one process sort by creation")

	at := time.UnixMilli(1767225600000)
	ts, err := RequestTime(newID(at))
	require.NoError(t, err)
	assert.True(t, ts.Equal(at))

	_, err = RequestTime("not-a-ulid")
	assert.Error(t, err)
}

func assertJSON(t *testing.T, want string, params map[string]any) {
	t.Helper()
	got, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, want, string(got))
}
