package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "mintgate/pkg/domain"
)

const (
	defaultKeyPrefix = "mintgate:ledger:"

	holderKeySegment = "holder:"
	refKeySegment    = "ref:"
	baseURIKey       = "base_uri"
	writerKey        = "writer"

	countScanBatch = 500
)

// releaseWriterScript deletes the writer key only while it still holds the
// caller's claim token.
var releaseWriterScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLedger stores holders and URI data in Redis so ownership outlives the
// process. The allocation engine keeps its counters in memory, so exactly one
// engine may write to a key prefix: call Claim before starting it, and refuse
// to start over a ledger whose Count is non-zero. Mint relies on SETNX for
// uniqueness and Transfer on WATCH/MULTI for compare-and-swap.
type RedisLedger struct {
	client *redis.Client
	prefix string

	mu    sync.RWMutex
	guard PauseGuard
}

// RedisLedgerOption configures a RedisLedger instance.
type RedisLedgerOption func(*RedisLedger)

// WithKeyPrefix namespaces every key, e.g. per environment.
func WithKeyPrefix(prefix string) RedisLedgerOption {
	return func(l *RedisLedger) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

func NewRedisLedger(client *redis.Client, opts ...RedisLedgerOption) *RedisLedger {
	l := &RedisLedger{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *RedisLedger) SetPauseGuard(g PauseGuard) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.guard = g
}

// Claim marks this process as the only writer of the key prefix. It fails
// with ErrWriterClaimed while another claim is held. The returned func
// releases the claim and is a no-op once someone else owns the key. A claim
// left behind by a crash must be removed by hand, which is acceptable since
// the ledger is already populated and Count refuses the restart anyway.
func (l *RedisLedger) Claim(ctx context.Context) (release func(context.Context) error, err error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+writerKey, token, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("claim ledger writer: %w", err)
	}
	if !ok {
		return nil, ErrWriterClaimed
	}
	return func(ctx context.Context) error {
		if err := releaseWriterScript.Run(ctx, l.client, []string{l.prefix + writerKey}, token).Err(); err != nil {
			return fmt.Errorf("release ledger writer: %w", err)
		}
		return nil
	}, nil
}

// Count returns how many identifiers currently have a holder. It walks the
// holder keys with SCAN, so it is meant for startup checks, not hot paths.
func (l *RedisLedger) Count(ctx context.Context) (int, error) {
	n := 0
	iter := l.client.Scan(ctx, 0, l.prefix+holderKeySegment+"*", countScanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("count ledger holders: %w", err)
	}
	return n, nil
}

func (l *RedisLedger) holderKey(tokenID id.TokenID) string {
	return l.prefix + holderKeySegment + strconv.FormatUint(uint64(tokenID), 10)
}

func (l *RedisLedger) refKey(tokenID id.TokenID) string {
	return l.prefix + refKeySegment + strconv.FormatUint(uint64(tokenID), 10)
}

func (l *RedisLedger) Mint(ctx context.Context, recipient id.Principal, tokenID id.TokenID) error {
	if recipient.IsNil() {
		return ErrInvalidRecipient
	}
	ok, err := l.client.SetNX(ctx, l.holderKey(tokenID), recipient.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("mint token %s: %w", tokenID, err)
	}
	if !ok {
		return ErrDuplicateIdentifier
	}
	return nil
}

func (l *RedisLedger) SetURIResolutionData(ctx context.Context, tokenID id.TokenID, metadataRef string) error {
	exists, err := l.client.Exists(ctx, l.holderKey(tokenID)).Result()
	if err != nil {
		return fmt.Errorf("check token %s: %w", tokenID, err)
	}
	if exists == 0 {
		return ErrUnknownIdentifier
	}
	if err := l.client.Set(ctx, l.refKey(tokenID), metadataRef, 0).Err(); err != nil {
		return fmt.Errorf("set uri data for token %s: %w", tokenID, err)
	}
	return nil
}

func (l *RedisLedger) SetBaseURI(ctx context.Context, prefix string) error {
	if err := l.client.Set(ctx, l.prefix+baseURIKey, prefix, 0).Err(); err != nil {
		return fmt.Errorf("set base uri: %w", err)
	}
	return nil
}

// ResolveURI reads holder, reference and prefix in one round trip.
func (l *RedisLedger) ResolveURI(ctx context.Context, tokenID id.TokenID) (string, error) {
	pipe := l.client.Pipeline()
	holder := pipe.Exists(ctx, l.holderKey(tokenID))
	ref := pipe.Get(ctx, l.refKey(tokenID))
	base := pipe.Get(ctx, l.prefix+baseURIKey)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("resolve uri for token %s: %w", tokenID, err)
	}
	if holder.Val() == 0 {
		return "", ErrUnknownIdentifier
	}
	return base.Val() + ref.Val(), nil
}

func (l *RedisLedger) Burn(ctx context.Context, tokenID id.TokenID) error {
	n, err := l.client.Del(ctx, l.holderKey(tokenID), l.refKey(tokenID)).Result()
	if err != nil {
		return fmt.Errorf("burn token %s: %w", tokenID, err)
	}
	if n == 0 {
		return ErrUnknownIdentifier
	}
	return nil
}

func (l *RedisLedger) HolderOf(ctx context.Context, tokenID id.TokenID) (id.Principal, error) {
	holder, err := l.client.Get(ctx, l.holderKey(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnknownIdentifier
	}
	if err != nil {
		return "", fmt.Errorf("get holder of token %s: %w", tokenID, err)
	}
	return id.Principal(holder), nil
}

// Transfer moves tokenID after the pause guard agrees. The holder check and
// the write run in one optimistic transaction; a concurrent change to the
// holder key aborts with redis.TxFailedErr.
func (l *RedisLedger) Transfer(ctx context.Context, from, to id.Principal, tokenID id.TokenID) error {
	l.mu.RLock()
	guard := l.guard
	l.mu.RUnlock()
	if guard != nil {
		if err := guard.BeforeTransfer(ctx, from, to, tokenID); err != nil {
			return err
		}
	}
	if to.IsNil() {
		return ErrInvalidRecipient
	}

	key := l.holderKey(tokenID)
	return l.client.Watch(ctx, func(tx *redis.Tx) error {
		holder, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrUnknownIdentifier
		}
		if err != nil {
			return fmt.Errorf("get holder of token %s: %w", tokenID, err)
		}
		if id.Principal(holder) != from {
			return ErrNotHolder
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, to.String(), 0)
			return nil
		})
		return err
	}, key)
}
