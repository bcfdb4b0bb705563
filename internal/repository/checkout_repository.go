package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sports-academy-api/internal/models"
)

// ErrCheckoutNotFound is returned when a session is missing or expired.
var ErrCheckoutNotFound = errors.New("checkout session not found")

const checkoutUpdateRetries = 5

// CheckoutRepository stores checkout sessions as JSON in Redis with a sliding TTL.
type CheckoutRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewCheckoutRepository constructs the repository.
func NewCheckoutRepository(client *redis.Client, prefix string, ttl time.Duration) *CheckoutRepository {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &CheckoutRepository{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

// Create stores a new session. It fails if the id is already taken.
func (r *CheckoutRepository) Create(ctx context.Context, session *models.CheckoutSession) error {
	now := r.now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal checkout: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.key(session.ID), payload, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("create checkout: %w", err)
	}
	if !ok {
		return fmt.Errorf("create checkout %s: already exists", session.ID)
	}
	return nil
}

// Get loads a session or returns ErrCheckoutNotFound.
func (r *CheckoutRepository) Get(ctx context.Context, id string) (*models.CheckoutSession, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	var session models.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal checkout: %w", err)
	}
	return &session, nil
}

// Update applies mutate under WATCH/MULTI so concurrent writers never interleave. When mutate
// returns an error nothing is written and the error is returned unchanged.
func (r *CheckoutRepository) Update(ctx context.Context, id string, mutate func(*models.CheckoutSession) error) (*models.CheckoutSession, error) {
	key := r.key(id)
	var updated *models.CheckoutSession

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrCheckoutNotFound
			}
			return fmt.Errorf("get checkout: %w", err)
		}
		var session models.CheckoutSession
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal checkout: %w", err)
		}
		if err := mutate(&session); err != nil {
			return err
		}
		session.UpdatedAt = r.now().UTC()
		payload, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal checkout: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &session
		return nil
	}

	for attempt := 0; attempt < checkoutUpdateRetries; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update checkout %s: too many concurrent writers", id)
}

func (r *CheckoutRepository) key(id string) string {
	return r.prefix + id
}
