package server

import (
	"time"

	"lifeos/internal/app"
	"lifeos/internal/dashboard"
	"lifeos/internal/record"
)

// Request payloads

type SetCurrentRequest struct {
	Name string `json:"name" example:"cockpit"`
}

// Response payloads

type DashboardSummary struct {
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Current   bool       `json:"current"`
	Sections  int        `json:"sections"`
	Failed    int        `json:"failed"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type DashboardResponse struct {
	Name      string            `json:"name"`
	Title     string            `json:"title"`
	Current   bool              `json:"current"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	Frames    []dashboard.Frame `json:"frames"`
}

type CurrentResponse struct {
	Current string `json:"current"`
}

type ActionResponse struct {
	ID             string `json:"id"`
	LastEditedTime string `json:"last_edited_time,omitempty"`
	CompletedBy    string `json:"completed_by,omitempty"`
}

type StatusResponse = app.Status

func dashboardSummary(a *app.App, r dashboard.Renderer) DashboardSummary {
	frames := a.Store.Frames(r.Name())
	failed := 0
	for _, f := range frames {
		if f.Failed() {
			failed++
		}
	}
	return DashboardSummary{
		Name:      r.Name(),
		Title:     r.Title(),
		Current:   a.Manager.Current() == r.Name(),
		Sections:  len(frames),
		Failed:    failed,
		UpdatedAt: timePtr(a.Store.UpdatedAt(r.Name())),
	}
}

func dashboardResponse(a *app.App, r dashboard.Renderer) DashboardResponse {
	frames := a.Store.Frames(r.Name())
	if frames == nil {
		frames = []dashboard.Frame{}
	}
	return DashboardResponse{
		Name:      r.Name(),
		Title:     r.Title(),
		Current:   a.Manager.Current() == r.Name(),
		UpdatedAt: timePtr(a.Store.UpdatedAt(r.Name())),
		Frames:    frames,
	}
}

func actionResponse(rec record.Record, completedBy string) ActionResponse {
	return ActionResponse{ID: rec.ID, LastEditedTime: rec.LastEditedTime, CompletedBy: completedBy}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
