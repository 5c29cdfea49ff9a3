package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// debitScript decrements only when the balance covers the amount. Running it
// server-side makes the compare and the decrement one atomic step.
var debitScript = redis.NewScript(`
local bal = tonumber(redis.call('GET', KEYS[1]) or '0')
local amt = tonumber(ARGV[1])
if bal < amt then
  return {0, bal}
end
bal = redis.call('DECRBY', KEYS[1], amt)
return {1, bal}
`)

// RedisLedger keeps balances in Redis for deployments without Postgres.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisLedger constructs a RedisLedger.
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client, prefix: "credits:"}
}

func (l *RedisLedger) key(companyID string) string {
	return l.prefix + companyID
}

func (l *RedisLedger) Balance(ctx context.Context, companyID string) (int, error) {
	bal, err := l.client.Get(ctx, l.key(companyID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get balance: %w", err)
	}
	return bal, nil
}

func (l *RedisLedger) TryDebit(ctx context.Context, companyID string, amount int, reason string) (DebitResult, error) {
	if amount <= 0 {
		return DebitResult{}, ErrInvalidAmount
	}
	vals, err := debitScript.Run(ctx, l.client, []string{l.key(companyID)}, amount).Int64Slice()
	if err != nil {
		return DebitResult{}, fmt.Errorf("redis debit: %w", err)
	}
	if len(vals) != 2 {
		return DebitResult{}, fmt.Errorf("redis debit: unexpected reply %v", vals)
	}
	res := DebitResult{OK: vals[0] == 1, NewBalance: int(vals[1])}
	if res.OK {
		l.audit(ctx, companyID, EntryDebit, amount, reason, res.NewBalance)
	}
	return res, nil
}

func (l *RedisLedger) Credit(ctx context.Context, companyID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	bal, err := l.client.IncrBy(ctx, l.key(companyID), int64(amount)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis credit: %w", err)
	}
	l.audit(ctx, companyID, EntryCredit, amount, reason, int(bal))
	return int(bal), nil
}

// audit appends to a capped list; failures only lose history, not balance.
func (l *RedisLedger) audit(ctx context.Context, companyID string, kind EntryKind, amount int, reason string, after int) {
	key := l.key(companyID) + ":entries"
	entry := fmt.Sprintf("%s|%d|%s|%d", kind, amount, reason, after)
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, key, entry)
	pipe.LTrim(ctx, key, 0, 999)
	_, _ = pipe.Exec(ctx)
}

var _ Ledger = (*RedisLedger)(nil)
