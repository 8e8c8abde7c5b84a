package linkverify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/docsync/internal/config"
)

// NATSClient keeps the link cache in a JetStream key-value bucket and
// publishes broken link events, so results survive across runs and hosts.
type NATSClient struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	subject string
	bucket  string
}

// NewNATSClient connects to cfg.NATSURL and opens (or creates) the cache bucket.
func NewNATSClient(ctx context.Context, cfg config.ExternalConfig) (*NATSClient, error) {
	if cfg.NATSURL == "" {
		return nil, errors.New("nats url is not configured")
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("docsync-linkverify"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &NATSClient{
		conn:    conn,
		js:      js,
		subject: cfg.Subject,
		bucket:  cfg.KVBucket,
	}
	if err := client.initKVBucket(ctx, cfg.CacheTTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize KV bucket: %w", err)
	}

	slog.Info("NATS client initialized for link verification",
		"url", cfg.NATSURL,
		"subject", cfg.Subject,
		"kv_bucket", cfg.KVBucket)
	return client, nil
}

// initKVBucket creates or gets the KV bucket for the link cache.
func (c *NATSClient) initKVBucket(ctx context.Context, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := c.js.KeyValue(ctx, c.bucket)
	if err == nil {
		c.kv = kv
		return nil
	}

	kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      c.bucket,
		Description: "docsync external link cache",
		MaxBytes:    64 * 1024 * 1024,
		History:     1,
		TTL:         ttl,
	})
	if err != nil {
		return fmt.Errorf("failed to create KV bucket: %w", err)
	}
	c.kv = kv
	slog.Info("Created KV bucket for link cache", "bucket", c.bucket)
	return nil
}

// key encodes url into the restricted KV key alphabet.
func key(url string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(url))
}

func (c *NATSClient) Get(ctx context.Context, url string) (*CacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	entry, err := c.kv.Get(ctx, key(url))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var cached CacheEntry
	if err := json.Unmarshal(entry.Value(), &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &cached, nil
}

func (c *NATSClient) Put(ctx context.Context, entry *CacheEntry) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if _, err := c.kv.Put(ctx, key(entry.URL), data); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// PublishBrokenLink publishes event on the configured subject.
func (c *NATSClient) PublishBrokenLink(ctx context.Context, event *BrokenLinkEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := c.js.Publish(ctx, c.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	slog.Debug("Published broken link event", "url", event.URL, "page", event.Page)
	return nil
}

func (c *NATSClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}
