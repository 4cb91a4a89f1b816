package cacheinfra

import "context"

// NoopService never stores anything; every read runs fetchFn.
type NoopService struct{}

// NewNoopService returns a pass-through cache service.
func NewNoopService() *NoopService {
	return &NoopService{}
}

func (NoopService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}
	return callFetchFunctionWithReflection(ctx, fetchFn)
}

func (NoopService) Delete(ctx context.Context, key string) error { return nil }

func (NoopService) DeleteByPrefix(ctx context.Context, prefix string) error { return nil }

func (NoopService) InvalidateKeys(ctx context.Context, keys []string) error { return nil }

func (NoopService) Ping(ctx context.Context) error { return nil }
