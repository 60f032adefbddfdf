package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the JetStream key-value bucket used when none is given.
const DefaultBucket = "KBQUIZ_PROGRESS"

// NATS keeps values in a JetStream key-value bucket whose TTL matches the
// progress retention window.
type NATS struct {
	nc *nats.Conn
	kv jetstream.KeyValue
}

var _ KV = (*NATS)(nil)

// OpenNATS connects to url and creates or updates the bucket.
func OpenNATS(ctx context.Context, url, bucket string, ttl time.Duration) (*NATS, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if bucket == "" {
		bucket = DefaultBucket
	}

	nc, err := nats.Connect(url, nats.Name("kbquiz"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Saved quiz progress",
		TTL:         ttl,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return &NATS{nc: nc, kv: kv}, nil
}

func (n *NATS) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.kv.Get(ctx, natsKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return entry.Value(), nil
}

func (n *NATS) Set(ctx context.Context, key string, value []byte) error {
	if _, err := n.kv.Put(ctx, natsKey(key), value); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (n *NATS) Remove(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, natsKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (n *NATS) List(ctx context.Context, prefix string) ([]string, error) {
	all, err := n.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	var keys []string
	p := natsKey(prefix)
	for _, k := range all {
		if !strings.HasPrefix(k, p) {
			continue
		}
		if key, ok := keyFromNATS(k); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// natsKey escapes key into the JetStream key alphabet. Bytes outside
// [-_/a-zA-Z0-9] become "=XX" (upper-case hex), so the escaping of a
// prefix is a prefix of the escaping of any key that starts with it.
func natsKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		if natsPlain(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "=%02X", c)
	}
	return b.String()
}

// keyFromNATS reverses natsKey. ok is false for keys this package did not
// write.
func keyFromNATS(k string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c != '=' {
			if !natsPlain(c) {
				return "", false
			}
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(k) {
			return "", false
		}
		v, err := strconv.ParseUint(k[i+1:i+3], 16, 8)
		if err != nil {
			return "", false
		}
		b.WriteByte(byte(v))
		i += 2
	}
	return b.String(), true
}

func natsPlain(c byte) bool {
	return c == '-' || c == '_' || c == '/' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func (n *NATS) Close() error {
	n.nc.Close()
	return nil
}
