// Package chat manages the mensajes table and its live feed.
package chat

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/crud"
	"github.com/trezcool/academia/core/remote"
)

type Service struct {
	messages *crud.Adapter[Message]
	hub      *Hub
}

// NewService returns a Service; posted messages are broadcast on hub when it is not nil.
func NewService(svc remote.Service, hub *Hub, opts ...crud.Option) *Service {
	return &Service{messages: crud.New[Message](svc, remote.TableMessages, opts...), hub: hub}
}

func (svc *Service) Hub() *Hub { return svc.hub }

// Latest returns the last LatestLimit messages, oldest first.
func (svc *Service) Latest(ctx context.Context) ([]Message, error) {
	msgs, err := svc.messages.FetchAll(ctx, crud.FetchOptions{OrderBy: "creado_en", Limit: LatestLimit})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Post stores a message written by author and broadcasts it.
func (svc *Service) Post(ctx context.Context, author string, f Form) (Message, error) {
	if author == "" {
		return Message{}, core.ErrNoSession
	}
	if err := f.Validate(); err != nil {
		return Message{}, err
	}
	msg, err := svc.messages.Create(ctx, f.payload(author))
	if err != nil {
		return Message{}, err
	}
	if svc.hub != nil {
		svc.hub.Broadcast(Event{Type: EventMessage, Payload: msg})
	}
	return msg, nil
}
