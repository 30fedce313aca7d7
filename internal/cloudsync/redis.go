package cloudsync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore 用一个 redis hash 保存共享文档，
// 用 pub/sub 频道向其他实例广播变更
type redisStore struct {
	client  *redis.Client
	pubsub  *redis.PubSub
	key     string
	channel string
}

const redisOpTimeout = 5 * time.Second

func openRedisStore(ctx context.Context, cfg Config) (DocumentStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("无法连接 redis: %w", err)
	}

	return &redisStore{
		client:  client,
		key:     cfg.DocumentKey,
		channel: cfg.Channel,
	}, nil
}

func (s *redisStore) Load(ctx context.Context) (Document, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return Document{}, false, err
	}
	if len(fields) == 0 {
		return Document{}, false, nil
	}

	doc := Document{
		Sites:          fields["sites"],
		People:         fields["people"],
		Vehicles:       fields["vehicles"],
		LastUpdateInfo: fields["lastUpdateInfo"],
	}
	if raw := fields["updatedAt"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Document{}, false, fmt.Errorf("远端文档的 updatedAt 无法解析: %w", err)
		}
		doc.UpdatedAt = t
	}
	return doc, true, nil
}

func (s *redisStore) Save(ctx context.Context, doc Document) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	err := s.client.HSet(ctx, s.key, map[string]any{
		"sites":          doc.Sites,
		"people":         doc.People,
		"vehicles":       doc.Vehicles,
		"lastUpdateInfo": doc.LastUpdateInfo,
		"updatedAt":      doc.UpdatedAt.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

func (s *redisStore) Subscribe(ctx context.Context) (<-chan Document, error) {
	s.pubsub = s.client.Subscribe(ctx, s.channel)

	// 确认订阅真正建立，避免错过紧随其后的广播
	subCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if _, err := s.pubsub.Receive(subCtx); err != nil {
		s.pubsub.Close()
		s.pubsub = nil
		return nil, err
	}

	out := make(chan Document)
	go func() {
		defer close(out)
		for msg := range s.pubsub.Channel() {
			var doc Document
			if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
				continue
			}
			out <- doc
		}
	}()
	return out, nil
}

func (s *redisStore) Close() error {
	if s.pubsub != nil {
		s.pubsub.Close()
		s.pubsub = nil
	}
	return s.client.Close()
}
