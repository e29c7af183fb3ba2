// Package cache provides a small TTL key/value store used for
// pending-order line items awaiting payment confirmation and for
// one-time email-verification token ids.
package cache

import (
	"context"
	"time"
)

// TTLStore stores opaque values under string keys with an expiry.
//
// Take is the single-use guard of the payment-confirmation flow: it must
// atomically return and delete the value, so that for concurrent callers
// on the same key exactly one observes the value and the rest see absence.
type TTLStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Take(ctx context.Context, key string) ([]byte, bool, error)
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
