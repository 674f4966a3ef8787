// Package repo fetches dataset records through a transport and writes action
// status changes back.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lifeos/internal/record"
	"lifeos/internal/schema"
	"lifeos/internal/transport"
)

var (
	// ErrFetchFailed matches every error returned by Fetch.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrUnknownDataset is returned for a dataset without a database id.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// FetchError wraps the cause of a failed fetch with the dataset involved.
type FetchError struct {
	Dataset schema.Dataset
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetchFailed) true for any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// maxPages bounds pagination against an upstream that never stops.
const maxPages = 100

// Repo reads records. It holds no cache; every call goes upstream and no
// call is retried here.
type Repo struct {
	Transport transport.Transport
	Databases map[schema.Dataset]string
	Schema    schema.Schema
	Location  *time.Location
	WeekStart time.Weekday
	// MaxValuePriority bounds the priority of core values (default 2).
	MaxValuePriority float64
	PageSize         int
	Now              func() time.Time
	Logger           *zap.Logger
}

// New builds a Repo with the default schema, local time and Monday weeks.
func New(t transport.Transport, databases map[schema.Dataset]string) Repo {
	return Repo{
		Transport:        t,
		Databases:        databases,
		Schema:           schema.Default(),
		Location:         time.Local,
		WeekStart:        time.Monday,
		MaxValuePriority: 2,
	}
}

// Clock returns the current time from the injected clock.
func (r Repo) Clock() time.Time { return r.now() }

// Zone is the time zone used for day boundaries.
func (r Repo) Zone() *time.Location { return r.loc() }

func (r Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r Repo) loc() *time.Location {
	if r.Location != nil {
		return r.Location
	}
	return time.Local
}

func (r Repo) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

// DatabaseID resolves the upstream id of ds.
func (r Repo) DatabaseID(ds schema.Dataset) (string, bool) {
	id, ok := r.Databases[ds]
	return id, ok && id != ""
}

// Fetch queries one dataset and follows pagination until every page is read.
// A nil filter or empty sorts are omitted from the request.
func (r Repo) Fetch(ctx context.Context, ds schema.Dataset, filter *Filter, sorts []Sort) ([]record.Record, error) {
	id, ok := r.DatabaseID(ds)
	if !ok {
		return nil, &FetchError{Dataset: ds, Err: ErrUnknownDataset}
	}
	if r.Transport == nil {
		return nil, &FetchError{Dataset: ds, Err: errors.New("no transport configured")}
	}

	req := transport.Request{Method: transport.MethodQueryDatabase, DatabaseID: id, PageSize: r.PageSize}
	if filter != nil {
		b, err := json.Marshal(filter)
		if err != nil {
			return nil, &FetchError{Dataset: ds, Err: err}
		}
		req.Filter = b
	}
	if len(sorts) > 0 {
		b, err := json.Marshal(sorts)
		if err != nil {
			return nil, &FetchError{Dataset: ds, Err: err}
		}
		req.Sorts = b
	}

	var raws []json.RawMessage
	for page := 0; page < maxPages; page++ {
		out, err := r.Transport.Invoke(ctx, req)
		if err != nil {
			return nil, &FetchError{Dataset: ds, Err: err}
		}
		var resp transport.QueryResponse
		if err := json.Unmarshal(out, &resp); err != nil {
			return nil, &FetchError{Dataset: ds, Err: fmt.Errorf("decode query response: %w", err)}
		}
		raws = append(raws, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" || resp.NextCursor == req.StartCursor {
			break
		}
		req.StartCursor = resp.NextCursor
	}

	records := record.DecodeAll(raws)
	r.logger().Debug("Fetched dataset",
		zap.String("dataset", string(ds)),
		zap.Int("records", len(records)))
	return records, nil
}

// Page fetches a single page by id.
func (r Repo) Page(ctx context.Context, pageID string) (record.Record, error) {
	if r.Transport == nil {
		return record.Record{}, errors.New("no transport configured")
	}
	out, err := r.Transport.Invoke(ctx, transport.Request{Method: transport.MethodGetPage, PageID: pageID})
	if err != nil {
		return record.Record{}, fmt.Errorf("get page %s: %w", pageID, err)
	}
	return record.Decode(out)
}
