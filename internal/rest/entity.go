package rest

import (
	"context"
	"encoding/json"
	"fmt"
)

// Hydrator is implemented by entities that need to finish their own
// initialization after being decoded.
type Hydrator interface {
	Hydrated()
}

// EntityService turns raw JSON payloads into typed entities.
type EntityService[T any] struct {
	Client *Client
	// New returns a fresh entity to decode into. Defaults to new(T).
	New func() *T
}

// ToRealObject decodes raw into a fresh entity and runs its Hydrated hook.
func (s *EntityService[T]) ToRealObject(raw json.RawMessage) (*T, error) {
	var entity *T
	if s.New != nil {
		entity = s.New()
	} else {
		entity = new(T)
	}
	if err := json.Unmarshal(raw, entity); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	if h, ok := any(entity).(Hydrator); ok {
		h.Hydrated()
	}
	return entity, nil
}

// GetAll fetches a JSON array and hydrates every element, keeping order.
func (s *EntityService[T]) GetAll(ctx context.Context, url string) ([]*T, error) {
	var raws []json.RawMessage
	if err := s.Client.GetJSON(ctx, url, &raws); err != nil {
		return nil, err
	}

	entities := make([]*T, 0, len(raws))
	for i, raw := range raws {
		entity, err := s.ToRealObject(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d of %s: %w", i, url, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// Get fetches and hydrates a single entity.
func (s *EntityService[T]) Get(ctx context.Context, url string) (*T, error) {
	var raw json.RawMessage
	if err := s.Client.GetJSON(ctx, url, &raw); err != nil {
		return nil, err
	}
	return s.ToRealObject(raw)
}
