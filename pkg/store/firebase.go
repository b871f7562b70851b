package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"time"

	"firebase.google.com/go/v4/db"
)

// FirebaseStore backs Store with the Firebase Realtime Database. The admin
// SDK has no streaming listeners, so Subscribe polls the path.
type FirebaseStore struct {
	client       *db.Client
	pollInterval time.Duration
}

// NewFirebaseStore wraps an initialized database client.
func NewFirebaseStore(client *db.Client, pollInterval time.Duration) *FirebaseStore {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &FirebaseStore{client: client, pollInterval: pollInterval}
}

func (f *FirebaseStore) ref(path string) *db.Ref {
	return f.client.NewRef(Join(path))
}

func (f *FirebaseStore) Get(ctx context.Context, path string, dst any) (bool, error) {
	var raw json.RawMessage
	if err := f.ref(path).Get(ctx, &raw); err != nil {
		return false, err
	}
	if isNull(raw) {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (f *FirebaseStore) Set(ctx context.Context, path string, value any) error {
	if value == nil {
		return f.ref(path).Delete(ctx)
	}
	return f.ref(path).Set(ctx, value)
}

func (f *FirebaseStore) Update(ctx context.Context, path string, partial map[string]any) error {
	if len(partial) == 0 {
		return nil
	}
	return f.ref(path).Update(ctx, partial)
}

func (f *FirebaseStore) Delete(ctx context.Context, path string) error {
	return f.ref(path).Delete(ctx)
}

func (f *FirebaseStore) Transact(ctx context.Context, path string, fn TxFunc) error {
	return f.ref(path).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var raw json.RawMessage
		if err := node.Unmarshal(&raw); err != nil {
			return nil, err
		}
		return fn(NewTxNode(raw))
	})
}

func (f *FirebaseStore) Query(ctx context.Context, path, child string, value any, dst any) error {
	var raw json.RawMessage
	if err := f.ref(path).OrderByChild(child).EqualTo(value).Get(ctx, &raw); err != nil {
		return err
	}
	if isNull(raw) {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, dst)
}

func (f *FirebaseStore) Subscribe(ctx context.Context, path string, cb func(Change)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	path = Join(path)

	var last json.RawMessage
	if err := f.ref(path).Get(ctx, &last); err != nil {
		cancel()
		return nil, err
	}

	go func() {
		ticker := time.NewTicker(f.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var cur json.RawMessage
				if err := f.ref(path).Get(ctx, &cur); err != nil {
					if ctx.Err() == nil {
						log.Printf("store: poll %s: %v", path, err)
					}
					continue
				}
				if bytes.Equal(cur, last) {
					continue
				}
				last = cur
				data := cur
				if isNull(data) {
					data = nil
				}
				cb(Change{Path: path, Data: data})
			}
		}
	}()
	return cancel, nil
}
