package service

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkoyasu/chatto/pkg/models"
)

func newTestManager(t *testing.T) *HistoryManager {
	t.Helper()
	store, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	return NewHistoryManager(store)
}

func TestStartNewSession(t *testing.T) {
	m := newTestManager(t)

	if m.GetCurrentSession() != "" {
		t.Fatalf("fresh manager has a current session")
	}

	first := m.StartNewSession()
	if first == "" {
		t.Fatalf("empty session id")
	}
	if m.GetCurrentSession() != first {
		t.Fatalf("current = %q, want %q", m.GetCurrentSession(), first)
	}

	second := m.StartNewSession()
	if second == first {
		t.Fatalf("session ids not unique")
	}
	if m.GetCurrentSession() != second {
		t.Fatalf("current not updated")
	}
}

func TestFullChatRoundTrip(t *testing.T) {
	m := newTestManager(t)
	m.StartNewSession()

	if _, err := m.SaveUserMessage("Hello", nil, "GPT-4o"); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}
	if _, err := m.SaveAssistantMessage("Hi there!"); err != nil {
		t.Fatalf("SaveAssistantMessage() error = %v", err)
	}

	msgs, err := m.LoadSessionMessages("", 0)
	if err != nil {
		t.Fatalf("LoadSessionMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "Hello" {
		t.Fatalf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "Hi there!" {
		t.Fatalf("msgs[1] = %+v", msgs[1])
	}
}

func TestSaveUserMessageStartsSessionImplicitly(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.SaveUserMessage("first", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}
	if m.GetCurrentSession() == "" {
		t.Fatalf("no session after implicit start")
	}

	msgs, err := m.LoadSessionMessages("", 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("LoadSessionMessages() = (%v, %v), want one message", msgs, err)
	}
}

func TestSaveAssistantMessageWithoutSession(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.SaveAssistantMessage("orphan reply"); err != nil {
		t.Fatalf("SaveAssistantMessage() error = %v", err)
	}
	if m.GetCurrentSession() == "" {
		t.Fatalf("no session started for orphan assistant message")
	}
}

func TestLoadSessionMessagesNoCurrentSession(t *testing.T) {
	m := newTestManager(t)
	msgs, err := m.LoadSessionMessages("", 0)
	if err != nil {
		t.Fatalf("LoadSessionMessages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("len(msgs) = %d, want 0", len(msgs))
	}
}

func TestDeleteConversationClearsCurrentPointer(t *testing.T) {
	m := newTestManager(t)
	sessionID := m.StartNewSession()
	if _, err := m.SaveUserMessage("x", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	deleted, err := m.DeleteConversation(sessionID)
	if err != nil || !deleted {
		t.Fatalf("DeleteConversation() = (%v, %v)", deleted, err)
	}
	if m.GetCurrentSession() != "" {
		t.Fatalf("current session not cleared after delete")
	}
}

func TestDeleteOtherConversationKeepsCurrentPointer(t *testing.T) {
	m := newTestManager(t)

	other := m.StartNewSession()
	if _, err := m.SaveUserMessage("old", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	current := m.StartNewSession()
	if _, err := m.SaveUserMessage("new", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	if _, err := m.DeleteConversation(other); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if m.GetCurrentSession() != current {
		t.Fatalf("current pointer lost when deleting another session")
	}
}

func TestClearAllHistoryClearsCurrentPointer(t *testing.T) {
	m := newTestManager(t)
	m.StartNewSession()
	if _, err := m.SaveUserMessage("x", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	if !m.ClearAllHistory() {
		t.Fatalf("ClearAllHistory() = false")
	}
	if m.GetCurrentSession() != "" {
		t.Fatalf("current session survived a full clear")
	}
}

func TestExportConversationText(t *testing.T) {
	m := newTestManager(t)
	sessionID := m.StartNewSession()
	if _, err := m.SaveUserMessage("質問です", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}
	if _, err := m.SaveAssistantMessage("回答です"); err != nil {
		t.Fatalf("SaveAssistantMessage() error = %v", err)
	}

	out, err := m.ExportConversation(sessionID, models.ExportText)
	if err != nil {
		t.Fatalf("ExportConversation() error = %v", err)
	}
	if !strings.Contains(out, "ユーザー: 質問です") {
		t.Fatalf("user line missing: %q", out)
	}
	if !strings.Contains(out, "アシスタント: 回答です") {
		t.Fatalf("assistant line missing: %q", out)
	}
}

func TestExportConversationMarkdown(t *testing.T) {
	m := newTestManager(t)
	sessionID := m.StartNewSession()
	if _, err := m.SaveUserMessage("質問", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}
	if _, err := m.SaveAssistantMessage("回答"); err != nil {
		t.Fatalf("SaveAssistantMessage() error = %v", err)
	}

	out, err := m.ExportConversation(sessionID, models.ExportMarkdown)
	if err != nil {
		t.Fatalf("ExportConversation() error = %v", err)
	}

	lines := strings.Split(out, "\n")
	userHeading, assistantHeading := -1, -1
	for i, line := range lines {
		if strings.HasPrefix(line, "## 👤 ユーザー") {
			userHeading = i
		}
		if strings.HasPrefix(line, "## 🤖 アシスタント") {
			assistantHeading = i
		}
	}
	if userHeading < 0 || assistantHeading < 0 {
		t.Fatalf("headings missing:\n%s", out)
	}
	if lines[userHeading+1] != "質問" {
		t.Fatalf("user content not under its heading: %q", lines[userHeading+1])
	}
	if lines[assistantHeading+1] != "回答" {
		t.Fatalf("assistant content not under its heading: %q", lines[assistantHeading+1])
	}
}

func TestExportConversationJSON(t *testing.T) {
	m := newTestManager(t)
	sessionID := m.StartNewSession()
	if _, err := m.SaveUserMessage("hello", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	out, err := m.ExportConversation(sessionID, models.ExportJSON)
	if err != nil {
		t.Fatalf("ExportConversation() error = %v", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("export is not valid json: %v\n%s", err, out)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0]["role"] != "user" || rows[0]["content"] != "hello" {
		t.Fatalf("row = %+v", rows[0])
	}
	if rows[0]["has_image"] != false {
		t.Fatalf("has_image = %v, want false", rows[0]["has_image"])
	}
}

func TestExportConversationImageMarkers(t *testing.T) {
	m := newTestManager(t)
	sessionID := m.StartNewSession()
	if _, err := m.SaveUserMessage("画像つき", testImage(t, 2, 2), ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	text, err := m.ExportConversation(sessionID, models.ExportText)
	if err != nil {
		t.Fatalf("ExportConversation(text) error = %v", err)
	}
	if !strings.Contains(text, "  (画像あり)") {
		t.Fatalf("text image marker missing: %q", text)
	}

	md, err := m.ExportConversation(sessionID, models.ExportMarkdown)
	if err != nil {
		t.Fatalf("ExportConversation(markdown) error = %v", err)
	}
	if !strings.Contains(md, "*📷 画像あり*") {
		t.Fatalf("markdown image marker missing: %q", md)
	}
}

func TestExportJSONReportsCorruptImage(t *testing.T) {
	m := newTestManager(t)
	sessionID := m.StartNewSession()
	if _, err := m.SaveUserMessage("画像つき", testImage(t, 4, 4), ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	if err := m.store.db.Exec("UPDATE messages SET image_data = ?", "!!not-base64!!").Error; err != nil {
		t.Fatalf("corrupt image_data: %v", err)
	}

	out, err := m.ExportConversation(sessionID, models.ExportJSON)
	if err != nil {
		t.Fatalf("ExportConversation() error = %v", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("export is not valid json: %v\n%s", err, out)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0]["has_image"] != true {
		t.Fatalf("has_image = %v for a stored image row, want true", rows[0]["has_image"])
	}
}

func TestExportConversationUnknownFormat(t *testing.T) {
	m := newTestManager(t)
	sessionID := m.StartNewSession()
	if _, err := m.SaveUserMessage("x", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	out, err := m.ExportConversation(sessionID, "xml")
	if !errors.Is(err, ErrUnsupportedExportFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedExportFormat", err)
	}
	if out != "" {
		t.Fatalf("out = %q, want empty", out)
	}
}

func TestExportEmptyConversation(t *testing.T) {
	m := newTestManager(t)
	out, err := m.ExportConversation("no-such-session", models.ExportJSON)
	if err != nil {
		t.Fatalf("ExportConversation() error = %v", err)
	}
	if out != "" {
		t.Fatalf("out = %q, want empty", out)
	}
}

func TestGetStatistics(t *testing.T) {
	m := newTestManager(t)
	sessionID := m.StartNewSession()
	if _, err := m.SaveUserMessage("x", nil, ""); err != nil {
		t.Fatalf("SaveUserMessage() error = %v", err)
	}

	stats := m.GetStatistics()
	if stats.ConversationCount != 1 || stats.MessageCount != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.CurrentSessionID != sessionID {
		t.Fatalf("current session = %q, want %q", stats.CurrentSessionID, sessionID)
	}
	if stats.SizeMB < 0 {
		t.Fatalf("negative size: %v", stats.SizeMB)
	}
}

func TestMigrateTransientState(t *testing.T) {
	m := newTestManager(t)

	transient := []models.ChatMessage{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	}
	sessionID, err := m.MigrateTransientState(transient, "GPT-4o")
	if err != nil {
		t.Fatalf("MigrateTransientState() error = %v", err)
	}

	msgs, err := m.LoadSessionMessages(sessionID, 0)
	if err != nil {
		t.Fatalf("LoadSessionMessages() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Content != want {
			t.Fatalf("msgs[%d] = %q, want %q (order must be preserved)", i, msgs[i].Content, want)
		}
	}
}

func TestMigrateTransientStateEmpty(t *testing.T) {
	m := newTestManager(t)

	sessionID, err := m.MigrateTransientState(nil, "")
	if err != nil {
		t.Fatalf("MigrateTransientState(nil) error = %v", err)
	}
	if sessionID == "" {
		t.Fatalf("empty migration must still mint a session")
	}
	if m.GetCurrentSession() != sessionID {
		t.Fatalf("migrated session is not current")
	}
}
