// internal/bus/nats.go
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	Source = "drawing-thumbnailer"

	TypeDrawingUploaded = "com.drawings.uploaded"
	TypeThumbnailDone   = "com.drawings.thumbnail.done"
	TypeBackfillDone    = "com.drawings.backfill.done"
)

type Client struct{ nc *nats.Conn }

func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name(Source),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) Conn() *nats.Conn { return c.nc }

func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, b)
}

// PublishEvent wraps v in a CloudEvent of eventType and publishes it.
func (c *Client) PublishEvent(subject, eventType string, v any) error {
	b, err := EncodeEvent(eventType, v)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, b)
}

// EncodeEvent builds the structured-mode JSON of a CloudEvent carrying v.
func EncodeEvent(eventType string, v any) ([]byte, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(Source)
	e.SetType(eventType)
	e.SetTime(time.Now())
	if err := e.SetData(cloudevents.ApplicationJSON, v); err != nil {
		return nil, fmt.Errorf("set event data: %w", err)
	}
	return json.Marshal(e)
}

// DecodeJSON fills v from either a CloudEvent envelope or a bare payload.
func DecodeJSON(data []byte, v any) error {
	var probe struct {
		SpecVersion string `json:"specversion"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.SpecVersion != "" {
		e := cloudevents.NewEvent()
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("decode cloudevent: %w", err)
		}
		return e.DataAs(v)
	}
	return json.Unmarshal(data, v)
}

func (c *Client) SubscribeJSON(subject string, handler func(ctx context.Context, data []byte)) (*nats.Subscription, error) {
	return c.nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		handler(ctx, msg.Data)
	})
}

// QueueSubscribeJSON delivers each message to one member of queue, with a
// per-message timeout.
func (c *Client) QueueSubscribeJSON(subject, queue string, timeout time.Duration, handler func(ctx context.Context, data []byte)) (*nats.Subscription, error) {
	return c.nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		handler(ctx, msg.Data)
	})
}

// Events publishes every payload as a CloudEvent of one type.
type Events struct {
	c         *Client
	eventType string
}

func (c *Client) Events(eventType string) *Events {
	return &Events{c: c, eventType: eventType}
}

func (e *Events) PublishJSON(subject string, v any) error {
	return e.c.PublishEvent(subject, e.eventType, v)
}
