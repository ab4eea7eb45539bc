package services

import (
	"context"

	"storefront/internal/models"
)

// Actor is the authenticated identity a request acts on behalf of.
// A nil *Actor means a guest.
type Actor struct {
	UserID uint
	Email  string
	Role   models.Role
}

// HasRole reports whether the actor holds one of roles.
func (a *Actor) HasRole(roles ...models.Role) bool {
	if a == nil {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// EventPublisher delivers order lifecycle events to interested consumers.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// Cache is the read-through cache used for catalog reads.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	DeletePrefix(ctx context.Context, prefix string) error
}
