package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minervahome/brain/internal/domain"
	"github.com/minervahome/brain/internal/transport"
	"go.uber.org/zap"
)

type stubChatStore struct {
	chats map[int64]domain.TelegramChat
}

func newStubChatStore() *stubChatStore {
	return &stubChatStore{chats: make(map[int64]domain.TelegramChat)}
}

func (s *stubChatStore) Upsert(_ context.Context, chat *domain.TelegramChat) (*domain.TelegramChat, error) {
	now := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	existing, ok := s.chats[chat.ChatID]
	if !ok {
		existing = domain.TelegramChat{
			ID:          fmt.Sprintf("chat-%d", chat.ChatID),
			ChatID:      chat.ChatID,
			Enabled:     true,
			FirstSeenAt: now,
		}
	}
	existing.ChatType = chat.ChatType
	existing.Username = chat.Username
	existing.Title = chat.Title
	existing.LastSeenAt = now
	s.chats[chat.ChatID] = existing
	return &existing, nil
}

func newTelegramTestApp(t *testing.T, store ChatStore) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
	if err := RegisterTelegramRoutes(app, store); err != nil {
		t.Fatalf("RegisterTelegramRoutes() error = %v", err)
	}
	return app
}

func TestRegisterChat(t *testing.T) {
	t.Parallel()

	store := newStubChatStore()
	app := newTelegramTestApp(t, store)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/integrations/telegram/register", `{"chat_id":100,"username":"alex"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var registered chatResponse
	if err := json.Unmarshal(body, &registered); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if registered.ChatID != 100 {
		t.Fatalf("chat_id = %d, want 100", registered.ChatID)
	}
	if registered.ChatType != "private" {
		t.Fatalf("chat_type = %q, want private default", registered.ChatType)
	}
	if !registered.Enabled {
		t.Fatal("expected new chat to be enabled")
	}
}

func TestRegisterChatIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newStubChatStore()
	app := newTelegramTestApp(t, store)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/integrations/telegram/register", `{"chat_id":100}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("first register status = %d, want 200", resp.StatusCode)
	}
	var first chatResponse
	if err := json.Unmarshal(body, &first); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}

	resp, body = performRequest(t, app, http.MethodPost, "/v1/integrations/telegram/register", `{"chat_id":100,"chat_type":"group"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("second register status = %d, want 200", resp.StatusCode)
	}
	var second chatResponse
	if err := json.Unmarshal(body, &second); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("id changed on re-register: %s then %s", first.ID, second.ID)
	}
	if second.ChatType != "group" {
		t.Fatalf("chat_type = %q, want refreshed to group", second.ChatType)
	}
	if len(store.chats) != 1 {
		t.Fatalf("stored chats = %d, want 1", len(store.chats))
	}
}

func TestRegisterChatRequiresChatID(t *testing.T) {
	t.Parallel()

	app := newTelegramTestApp(t, newStubChatStore())

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/integrations/telegram/register", `{"chat_type":"private"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without chat_id", resp.StatusCode)
	}
}
