package store

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// DefaultChangeChannel is the Redis channel every write path is published on.
const DefaultChangeChannel = "freelink:changes"

// RedisFeed decorates a Store so that writes made by any replica reach the
// subscribers of every other replica. Writes go to the inner store first and
// the written path is then published; subscribers re-read the path they
// watch when a published path overlaps it.
type RedisFeed struct {
	Store
	rdb     *redis.Client
	channel string
}

// NewRedisFeed wraps s. An empty channel selects DefaultChangeChannel.
func NewRedisFeed(s Store, rdb *redis.Client, channel string) *RedisFeed {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &RedisFeed{Store: s, rdb: rdb, channel: channel}
}

func (r *RedisFeed) Set(ctx context.Context, path string, value any) error {
	if err := r.Store.Set(ctx, path, value); err != nil {
		return err
	}
	r.publish(ctx, path)
	return nil
}

func (r *RedisFeed) Update(ctx context.Context, path string, partial map[string]any) error {
	if err := r.Store.Update(ctx, path, partial); err != nil {
		return err
	}
	r.publish(ctx, path)
	return nil
}

func (r *RedisFeed) Delete(ctx context.Context, path string) error {
	if err := r.Store.Delete(ctx, path); err != nil {
		return err
	}
	r.publish(ctx, path)
	return nil
}

func (r *RedisFeed) Transact(ctx context.Context, path string, fn TxFunc) error {
	if err := r.Store.Transact(ctx, path, fn); err != nil {
		return err
	}
	r.publish(ctx, path)
	return nil
}

// publish is best effort: the write already succeeded, and subscribers that
// miss a change still converge on their next read.
func (r *RedisFeed) publish(ctx context.Context, path string) {
	if err := r.rdb.Publish(ctx, r.channel, Join(path)).Err(); err != nil {
		log.Printf("store: publish change %s: %v", path, err)
	}
}

func (r *RedisFeed) Subscribe(ctx context.Context, path string, cb func(Change)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	path = Join(path)

	pubsub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		pubsub.Close()
		return nil, err
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !Overlaps(path, msg.Payload) {
					continue
				}
				var data json.RawMessage
				found, err := r.Store.Get(ctx, path, &data)
				if err != nil {
					log.Printf("store: refresh %s: %v", path, err)
					continue
				}
				if !found {
					data = nil
				}
				cb(Change{Path: path, Data: data})
			}
		}
	}()
	return cancel, nil
}
