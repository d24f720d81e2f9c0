package client

import (
	"context"
	"fmt"
	"net/url"

	"pkt.systems/buildd/api"
)

// Views exposes view CRUD against the controller.
type Views struct {
	client *Client
}

// Views returns the view API accessor.
func (c *Client) Views() *Views {
	return &Views{client: c}
}

// List returns all views.
func (v *Views) List(ctx context.Context) ([]api.ViewRecord, error) {
	var resp api.ViewListResponse
	if err := v.client.getJSON(ctx, "/api/json", &resp); err != nil {
		return nil, err
	}
	return resp.Views, nil
}

// Exists reports whether a view with the given name exists.
func (v *Views) Exists(ctx context.Context, name string) (bool, error) {
	records, err := v.List(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Create creates a list view with the given name.
func (v *Views) Create(ctx context.Context, name string) error {
	form := url.Values{"name": {name}, "mode": {"list"}}
	if _, err := v.client.postForm(ctx, "/createView", form); err != nil {
		return fmt.Errorf("create view %q: %w", name, err)
	}
	v.client.logInfo("client.views.create", "view", name)
	return nil
}

// Delete removes the named view.
func (v *Views) Delete(ctx context.Context, name string) error {
	if _, err := v.client.postForm(ctx, viewPath(name)+"/doDelete", nil); err != nil {
		return fmt.Errorf("delete view %q: %w", name, err)
	}
	v.client.logInfo("client.views.delete", "view", name)
	return nil
}

// AddJob adds a job to the named view.
func (v *Views) AddJob(ctx context.Context, view, job string) error {
	form := url.Values{"name": {job}}
	if _, err := v.client.postForm(ctx, viewPath(view)+"/addJobToView", form); err != nil {
		return fmt.Errorf("add job %q to view %q: %w", job, view, err)
	}
	return nil
}

func viewPath(name string) string {
	return "/view/" + url.PathEscape(name)
}
