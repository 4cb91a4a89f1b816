package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-studentdb/student"
)

// BulkDelete returns a job that deletes every id. Ids that no longer exist
// are counted as skipped; any other failure stops the job.
func BulkDelete(repo Deleter, ids []int64) Func {
	ids = append([]int64(nil), ids...)

	return func(ctx context.Context) (Report, error) {
		var report Report
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return report, fmt.Errorf("stopped before id %d: %w", id, err)
			}

			_, err := repo.Delete(ctx, id)
			switch {
			case errors.Is(err, student.ErrNotFound):
				report.Skipped++
			case err != nil:
				return report, fmt.Errorf("delete id %d: %w", id, err)
			default:
				report.Processed++
			}
		}
		return report, nil
	}
}
