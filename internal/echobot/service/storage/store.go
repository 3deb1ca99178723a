// Package storage defines the key-value store plugins persist state in.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiosk404/echobot/pkg/utils/json"
)

// ErrInvalidKey is returned for empty namespaces or keys.
var ErrInvalidKey = errors.New("storage: namespace and key must not be empty")

// KV is a namespaced byte store. Namespaces are created on first write.
type KV interface {
	Get(ctx context.Context, ns, key string) ([]byte, bool, error)
	Set(ctx context.Context, ns, key string, value []byte) error
	Delete(ctx context.Context, ns, key string) error
	// Keys lists the keys of ns in byte order.
	Keys(ctx context.Context, ns string) ([]string, error)
}

// GetJSON decodes the value at ns/key into out. It reports false when the
// key is absent.
func GetJSON(ctx context.Context, kv KV, ns, key string, out interface{}) (bool, error) {
	data, ok, err := kv.Get(ctx, ns, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", ns, key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at ns/key.
func SetJSON(ctx context.Context, kv KV, ns, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", ns, key, err)
	}
	return kv.Set(ctx, ns, key, data)
}
