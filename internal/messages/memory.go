package messages

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps messages in process. It backs local runs with
// database.message_store=memory and the engine tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	messages []EnrichedMessage
	nextID   int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (r *MemoryRepository) CountMessages(ctx context.Context, filter Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for i := range r.messages {
		msg := r.read(i)
		if filter.Matches(&msg) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) FindMessages(ctx context.Context, filter Filter, limit int) ([]EnrichedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	var result []EnrichedMessage
	for i := range r.messages {
		msg := r.read(i)
		if filter.Matches(&msg) {
			result = append(result, msg)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryRepository) SaveMessage(ctx context.Context, msg *EnrichedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *msg
	stored.Timestamp = msg.Timestamp.UTC()

	for i := range r.messages {
		existing := &r.messages[i]
		if existing.ChannelID == msg.ChannelID && existing.TelegramMessageID == msg.TelegramMessageID {
			stored.ID = existing.ID
			stored.Timestamp = existing.Timestamp
			*existing = stored
			msg.ID = stored.ID
			return nil
		}
	}

	stored.ID = r.nextID
	r.nextID++
	r.messages = append(r.messages, stored)
	msg.ID = stored.ID
	return nil
}

// read returns a copy of the i-th message with normalized metadata.
func (r *MemoryRepository) read(i int) EnrichedMessage {
	msg := r.messages[i]
	msg.Metadata = msg.Metadata.Normalized()
	return msg
}
