package repository

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"plate-service/internal/model"
)

// PlateLookup: хранилище, в котором ищутся номера.
type PlateLookup interface {
	GetByPlate(ctx context.Context, plate string) (*model.Vehicle, error)
}

// CachedRegistry кэширует результаты поиска по номеру, в том числе промахи.
// Ошибки хранилища не кэшируются.
type CachedRegistry struct {
	next  PlateLookup
	cache *cache.Cache
}

func NewCachedRegistry(next PlateLookup, ttl time.Duration) *CachedRegistry {
	return &CachedRegistry{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

func (c *CachedRegistry) GetByPlate(ctx context.Context, plate string) (*model.Vehicle, error) {
	key := strings.ToUpper(plate)
	if cached, found := c.cache.Get(key); found {
		return copyVehicle(cached.(*model.Vehicle)), nil
	}

	vehicle, err := c.next.GetByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vehicle, cache.DefaultExpiration)
	return copyVehicle(vehicle), nil
}

// Invalidate сбрасывает запись после регистрации или изменения машины.
func (c *CachedRegistry) Invalidate(plate string) {
	c.cache.Delete(strings.ToUpper(plate))
}

func (c *CachedRegistry) Flush() {
	c.cache.Flush()
}

func copyVehicle(v *model.Vehicle) *model.Vehicle {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
