package inspector

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Nao-Mk2/nginx-log-analyzer/internal/model"
)

// dateLayout formats the report date tag of a search window.
const dateLayout = "20060102"

// GroupSearcher fetches the events of one log group.
type GroupSearcher interface {
	SearchGroup(ctx context.Context, group, filterPattern string, startMs, endMs int64) ([]model.LogRecord, error)
}

// Inspector pulls access-log events from several CloudWatch groups and
// serves them as one line stream.
type Inspector struct {
	client        GroupSearcher
	groups        []string
	startTime     time.Time
	endTime       time.Time
	filterPattern string
	workers       int
}

// New creates an Inspector over [startTime, endTime].
func New(client GroupSearcher, groups []string, startTime, endTime time.Time) *Inspector {
	return &Inspector{client: client, groups: groups, startTime: startTime, endTime: endTime, workers: 4}
}

// SetWorkers bounds the number of groups fetched concurrently.
func (in *Inspector) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	in.workers = n
}

// SetFilterPattern restricts events to a CloudWatch filter pattern. Patterns
// that are not already quoted are quoted so they match literally.
func (in *Inspector) SetFilterPattern(p string) {
	if p != "" && !(len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"') {
		p = "\"" + p + "\""
	}
	in.filterPattern = p
}

// Date is the report date tag for this window (UTC day of the end time).
func (in *Inspector) Date() string {
	return in.endTime.UTC().Format(dateLayout)
}

// Search fetches events from every group and returns them ordered by
// timestamp, then group, stream and message.
func (in *Inspector) Search(ctx context.Context) ([]model.LogRecord, error) {
	if len(in.groups) == 0 {
		return nil, errors.New("no log groups configured")
	}
	startMs := in.startTime.UnixMilli()
	endMs := in.endTime.UnixMilli()

	workers := in.workers
	if workers > len(in.groups) {
		workers = len(in.groups)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	groupChan := make(chan string, len(in.groups))
	for _, g := range in.groups {
		groupChan <- g
	}
	close(groupChan)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		all      []model.LogRecord
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range groupChan {
				records, err := in.client.SearchGroup(ctx, group, in.filterPattern, startMs, endMs)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					return
				}
				all = append(all, records...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Timestamp.Equal(all[j].Timestamp) {
			if all[i].LogGroup == all[j].LogGroup {
				if all[i].LogStream == all[j].LogStream {
					return all[i].Message < all[j].Message
				}
				return all[i].LogStream < all[j].LogStream
			}
			return all[i].LogGroup < all[j].LogGroup
		}
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, nil
}

// Lines fetches all events and feeds each message to fn as a log line.
func (in *Inspector) Lines(ctx context.Context, fn func(line string) error) error {
	records, err := in.Search(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(r.Message); err != nil {
			return err
		}
	}
	return nil
}
