// Package cache defines the read-through cache used in front of the student
// store and the keys it is addressed by.
//
// # Overview
//
//   - CacheService: read-through lookups plus key and prefix invalidation
//   - KeySerializer: builds keys from a namespace and query arguments
//   - NewCacheService: picks the backend named by Config.Backend
//
// Three backends exist. "sturdyc" is an in-process sharded cache, "redis"
// shares entries between instances and "none" disables caching while keeping
// the same call sites.
//
// # Keys
//
// Keys are the namespace followed by each argument, joined with "_":
//
//	serializer := cache.NewDefaultKeySerializer()
//	serializer.SerializeKey("students", "CS")   // students_CS
//	serializer.SerializeKey("student_by_id", 7) // student_by_id_7
//	serializer.SerializeKey("courses")          // courses
//
// Segments longer than MaxSegmentLength are replaced by a hash so keys stay
// bounded. KeyPrefix(ns) matches every key of ns that has arguments, which is
// what DeleteByPrefix expects when a whole family of entries goes stale.
//
// # Reads
//
//	members, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) ([]student.FacultyMember, error) {
//		return store.ListByFaculty(ctx, "CS")
//	})
//
// Errors from the fetch function are returned and never cached. A backend
// that cannot be reached makes GetOrFetch call the fetch function directly;
// only invalidation and Ping report ErrCacheUnavailable.
package cache
