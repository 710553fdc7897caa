package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/R3E-Network/widget_layer/pkg/logger"
)

// Frame is the wire format of a cross-context message. Source carries the
// channel id of the publishing context so receivers can tell their own
// frames apart from foreign ones.
type Frame struct {
	Topic  string          `json:"topic"`
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Broadcast connects the local Bus to a Redis Pub/Sub channel shared by
// every context of the same application. Frames published here reach the
// local bus and all remote contexts; inbound frames from other contexts are
// republished on the local bus under their original topic.
type Broadcast struct {
	mu        sync.Mutex
	rdb       *redis.Client
	bus       *Bus
	log       logger.Logger
	channel   string
	channelID string
	started   bool
	sub       *redis.PubSub
	tap       func(Frame)
}

// NewBroadcast creates a Broadcast for the named Redis channel. The channel
// id identifies this context and doubles as the pseudo session id carried on
// identity requests.
func NewBroadcast(rdb *redis.Client, b *Bus, channel string, log logger.Logger) *Broadcast {
	if log == nil {
		log = logger.Nop()
	}
	return &Broadcast{
		rdb:       rdb,
		bus:       b,
		log:       log,
		channel:   channel,
		channelID: uuid.NewString(),
	}
}

// ChannelID returns the identifier of this context on the shared channel.
func (b *Broadcast) ChannelID() string {
	return b.channelID
}

// Start subscribes to the shared channel and begins relaying inbound frames
// onto the local bus. Start is idempotent; the first call wins.
func (b *Broadcast) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	b.sub = sub
	b.started = true

	go b.relay(ctx, sub.Channel())
	return nil
}

// Publish sends a frame to every context on the shared channel, including
// this one. Local delivery happens through the relay like any other frame,
// so ordering is uniform across contexts.
func (b *Broadcast) Publish(ctx context.Context, topic string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame := Frame{Topic: topic, Source: b.channelID, Data: raw}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

// Tap installs a hook invoked for every inbound frame, foreign or own.
// The bridge uses it to fan frames out to attached page contexts.
func (b *Broadcast) Tap(fn func(Frame)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tap = fn
}

// Close stops the relay. The local bus is left untouched.
func (b *Broadcast) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		err := b.sub.Close()
		b.sub = nil
		b.started = false
		return err
	}
	return nil
}

func (b *Broadcast) relay(ctx context.Context, msgs <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var frame Frame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				b.log.Warn("broadcast: dropping malformed frame", "error", err)
				continue
			}
			b.dispatch(frame)
		}
	}
}

func (b *Broadcast) dispatch(frame Frame) {
	b.mu.Lock()
	tap := b.tap
	b.mu.Unlock()

	if tap != nil {
		tap(frame)
	}
	b.bus.Publish(frame.Topic, frame.Source, frame.Data)
}
