// Package repositorycache provides a cached decorator for student.Repository.
//
// # Overview
//
// CachedRepository wraps a base repository and serves the five read queries
// through a cache.CacheService. Writes go straight to the base repository and,
// once they succeed, drop every cache entry the written row could appear in.
//
// # Keys
//
// Each read owns a namespace derived from its name in snake_case:
//
//	students_{faculty}    ListByFaculty
//	avg_grade_{faculty}   AverageGrade
//	all_students          List
//	courses               ListCourses
//	student_by_id_{id}    GetByID
//
// # Invalidation
//
// Create, Update and Delete remove the record's own student_by_id entry, the
// students listing of its faculty, all_students, courses and every avg_grade
// entry. An Update that carries a faculty drops every students listing.
// Entries written concurrently with an invalidation may survive it; they
// expire after the configured TTL.
//
// # Failures
//
// A cache that cannot be read never fails a query; the decorator logs and
// answers from the base repository. Invalidation failures are logged and do
// not fail the write.
//
// # Usage
//
//	svc, err := cache.NewCacheService(ctx, cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//	repo := repositorycache.New(base, svc, cache.NewDefaultKeySerializer(), logger)
//
// Slices returned by the decorator are copies and may be modified freely.
package repositorycache
