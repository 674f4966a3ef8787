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

// Gateway writes action status changes upstream. Callers re-render after a
// successful update; nothing is cached here.
type Gateway struct {
	Transport transport.Transport
	Schema    schema.Schema
	Location  *time.Location
	Now       func() time.Time
	Logger    *zap.Logger
}

// UpdateStatus sets the status of an action and, when completedAt is given,
// its completion date. It returns the updated record.
func (g Gateway) UpdateStatus(ctx context.Context, actionID, status string, completedAt *time.Time) (record.Record, error) {
	if actionID == "" {
		return record.Record{}, errors.New("action id is required")
	}
	if g.Transport == nil {
		return record.Record{}, errors.New("no transport configured")
	}
	a := g.Schema.Actions
	statusValue := record.SelectValue(status)
	if g.Schema.StatusKind == "status" {
		statusValue = record.StatusValue(status)
	}
	props := map[string]record.Property{a.Status.Label(): statusValue}
	if completedAt != nil {
		loc := g.Location
		if loc == nil {
			loc = time.Local
		}
		props[a.CompletedAt.Label()] = record.DateValue(completedAt.In(loc).Format(time.RFC3339))
	}
	payload, err := json.Marshal(props)
	if err != nil {
		return record.Record{}, fmt.Errorf("encode properties: %w", err)
	}

	out, err := g.Transport.Invoke(ctx, transport.Request{
		Method:     transport.MethodUpdatePage,
		PageID:     actionID,
		Properties: payload,
	})
	if err != nil {
		return record.Record{}, fmt.Errorf("update action %s: %w", actionID, err)
	}
	if g.Logger != nil {
		g.Logger.Info("Action status updated",
			zap.String("action_id", actionID),
			zap.String("status", status))
	}
	updated, err := record.Decode(out)
	if err != nil {
		return record.Record{}, fmt.Errorf("update action %s: %w", actionID, err)
	}
	return updated, nil
}

// CompleteAction marks an action done as of now.
func (g Gateway) CompleteAction(ctx context.Context, actionID string) (record.Record, error) {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	return g.UpdateStatus(ctx, actionID, g.Schema.Done, &now)
}
