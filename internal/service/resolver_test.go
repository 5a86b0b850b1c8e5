package service

import (
	"context"
	"testing"

	"github.com/minervahome/brain/internal/domain"
)

type fakeChatRepo struct {
	chats []domain.TelegramChat
}

func (f *fakeChatRepo) Upsert(_ context.Context, chat *domain.TelegramChat) (*domain.TelegramChat, error) {
	f.chats = append(f.chats, *chat)
	return chat, nil
}

func (f *fakeChatRepo) ListEnabled(_ context.Context) ([]domain.TelegramChat, error) {
	var out []domain.TelegramChat
	for _, chat := range f.chats {
		if chat.Enabled {
			out = append(out, chat)
		}
	}
	return out, nil
}

func TestChatResolverResolvesTelegramToEnabledChats(t *testing.T) {
	t.Parallel()

	chats := &fakeChatRepo{chats: []domain.TelegramChat{
		{ID: "c1", ChatID: 100, Enabled: true},
		{ID: "c2", ChatID: 200, Enabled: false},
		{ID: "c3", ChatID: 300, Enabled: true},
	}}
	resolver := NewChatResolver(chats)

	destinations, err := resolver.Resolve(context.Background(), domain.ChannelTelegram)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(destinations) != 2 {
		t.Fatalf("destinations = %d, want 2", len(destinations))
	}
	if destinations[0].ChatID != 100 || destinations[1].ChatID != 300 {
		t.Fatalf("destinations = %+v, want chats 100 and 300", destinations)
	}
}

func TestChatResolverUnknownChannelResolvesToNothing(t *testing.T) {
	t.Parallel()

	chats := &fakeChatRepo{chats: []domain.TelegramChat{{ID: "c1", ChatID: 100, Enabled: true}}}
	resolver := NewChatResolver(chats)

	destinations, err := resolver.Resolve(context.Background(), "esp32")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(destinations) != 0 {
		t.Fatalf("destinations = %d, want 0 for unknown channel", len(destinations))
	}
}
