package service

import (
	"context"

	"github.com/minervahome/brain/internal/domain"
	"github.com/minervahome/brain/internal/repository"
)

// Destination is one concrete delivery target resolved from a channel name.
type Destination struct {
	Channel string
	ChatID  int64
}

// DestinationResolver maps a channel name to the concrete destinations a
// notification should fan out to. Channel-to-destination binding is
// deliberately pluggable; the engine does not know what a channel means.
type DestinationResolver interface {
	Resolve(ctx context.Context, channel string) ([]Destination, error)
}

// ChatResolver resolves the telegram channel to all enabled registered
// chats. Channels it does not know about resolve to no destinations.
type ChatResolver struct {
	chats repository.ChatRepository
}

func NewChatResolver(chats repository.ChatRepository) *ChatResolver {
	return &ChatResolver{chats: chats}
}

func (r *ChatResolver) Resolve(ctx context.Context, channel string) ([]Destination, error) {
	if channel != domain.ChannelTelegram {
		return nil, nil
	}

	chats, err := r.chats.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	destinations := make([]Destination, 0, len(chats))
	for _, chat := range chats {
		destinations = append(destinations, Destination{
			Channel: channel,
			ChatID:  chat.ChatID,
		})
	}
	return destinations, nil
}
