package repositorycache

import (
	"context"
	"strconv"
)

// invalidation collects the exact keys and key prefixes a write makes stale.
type invalidation struct {
	keys     []string
	prefixes []string
}

func (inv *invalidation) key(k string) {
	inv.keys = append(inv.keys, k)
}

func (inv *invalidation) prefix(p string) {
	inv.prefixes = append(inv.prefixes, p)
}

// apply removes everything collected. Failures are logged per key or prefix
// and never returned: the write has already committed.
func (c *CachedRepository) apply(ctx context.Context, inv invalidation) {
	if keys := dedupeStrings(inv.keys); len(keys) > 0 {
		if err := c.cache.InvalidateKeys(ctx, keys); err != nil {
			c.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
		}
	}
	for _, p := range dedupeStrings(inv.prefixes) {
		if err := c.cache.DeleteByPrefix(ctx, p); err != nil {
			c.logger.Warn().Err(err).Str("prefix", p).Msg("cache invalidation failed")
		}
	}
}

// recordChanged builds the invalidation set shared by every write: the
// record's own entry, its faculty listing, the full listing, the course
// list and every faculty average.
func (c *CachedRepository) recordChanged(id int64, faculty string) invalidation {
	var inv invalidation
	inv.key(c.keySerializer.SerializeKey(nsStudentByID, strconv.FormatInt(id, 10)))
	inv.key(c.keySerializer.SerializeKey(nsStudents, faculty))
	inv.key(c.keySerializer.SerializeKey(nsAllStudents))
	inv.key(c.keySerializer.SerializeKey(nsCourses))
	inv.prefix(c.prefix(nsAvgGrade))
	return inv
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
