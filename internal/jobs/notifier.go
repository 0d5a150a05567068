package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/learning-platform/pkg/http/ws"
)

const defaultUpdatesChannel = "assessment:jobs:updates"

// Notifier announces job status changes.
type Notifier interface {
	Notify(ctx context.Context, update Update) error
}

// RedisNotifier publishes updates on a Pub/Sub channel so every API instance can see them.
type RedisNotifier struct {
	client  redis.Cmdable
	channel string
}

func NewRedisNotifier(client redis.Cmdable, channel string) *RedisNotifier {
	if channel == "" {
		channel = defaultUpdatesChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, update Update) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, data).Err()
}

type jobBroadcaster interface {
	BroadcastToJob(jobID uuid.UUID, msg ws.Message) error
}

// Broadcaster listens for job updates on Redis Pub/Sub and forwards them to websocket subscribers.
type Broadcaster struct {
	redis   *redis.Client
	hub     jobBroadcaster
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(redis *redis.Client, hub jobBroadcaster, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = defaultUpdatesChannel
	}
	return &Broadcaster{
		redis:   redis,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "job_broadcaster").Logger(),
	}
}

// Run subscribes to the update channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var update Update
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode job update payload")
		return
	}

	msg, err := ws.NewMessage(ws.TypeJobUpdate, UpdatePayload(update))
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal job update WS payload")
		return
	}
	if err := b.hub.BroadcastToJob(update.JobID, msg); err != nil {
		b.logger.Debug().Err(err).Str("job_id", update.JobID.String()).Msg("failed to deliver job update")
	}
}

// UpdatePayload converts an update to its websocket form.
func UpdatePayload(u Update) ws.JobUpdatePayload {
	return ws.JobUpdatePayload{
		JobID:         u.JobID.String(),
		Status:        string(u.Status),
		SourceTier:    string(u.SourceTier),
		QuestionCount: u.QuestionCount,
		ErrorCode:     u.ErrorCode,
		ErrorMessage:  u.ErrorMessage,
		UpdatedAt:     u.UpdatedAt,
	}
}
