package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pkt.systems/buildd/api"
)

// Jobs exposes job CRUD against the controller.
type Jobs struct {
	client *Client
}

// Jobs returns the job API accessor.
func (c *Client) Jobs() *Jobs {
	return &Jobs{client: c}
}

// List returns all jobs known to the controller.
func (j *Jobs) List(ctx context.Context) ([]api.JobRecord, error) {
	var resp api.JobListResponse
	if err := j.client.getJSON(ctx, "/api/json", &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Names returns all job names.
func (j *Jobs) Names(ctx context.Context) ([]string, error) {
	records, err := j.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Name
	}
	return names, nil
}

// Exists reports whether a job with the given name exists.
func (j *Jobs) Exists(ctx context.Context, name string) (bool, error) {
	records, err := j.List(ctx)
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

// Get returns a handle for the named job, or *UnknownJobError.
func (j *Jobs) Get(ctx context.Context, name string) (*Job, error) {
	records, err := j.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Name == name {
			return &Job{client: j.client, name: rec.Name, url: rec.URL}, nil
		}
	}
	return nil, &UnknownJobError{Name: name}
}

// Create creates a job from its XML configuration.
func (j *Jobs) Create(ctx context.Context, name string, configXML []byte) error {
	path := "/createItem?" + url.Values{"name": {name}}.Encode()
	if err := j.client.postBody(ctx, path, "application/xml", configXML); err != nil {
		return fmt.Errorf("create job %q: %w", name, err)
	}
	j.client.logInfo("client.jobs.create", "job", name)
	return nil
}

// Copy creates a new job as a copy of an existing one.
func (j *Jobs) Copy(ctx context.Context, src, dst string) error {
	form := url.Values{"name": {dst}, "mode": {"copy"}, "from": {src}}
	path := "/createItem?" + form.Encode()
	if _, err := j.client.postForm(ctx, path, nil); err != nil {
		return fmt.Errorf("copy job %q to %q: %w", src, dst, err)
	}
	j.client.logInfo("client.jobs.copy", "from", src, "to", dst)
	return nil
}

// Delete removes the named job.
func (j *Jobs) Delete(ctx context.Context, name string) error {
	if _, err := j.client.postForm(ctx, jobPath(name)+"/doDelete", nil); err != nil {
		return fmt.Errorf("delete job %q: %w", name, err)
	}
	j.client.logInfo("client.jobs.delete", "job", name)
	return nil
}

// Build triggers a build of the named job. Params, when non-empty, are sent
// as build parameters. The returned ref points at the controller's queue item.
func (j *Jobs) Build(ctx context.Context, name string, params url.Values) (api.QueueItemRef, error) {
	path := jobPath(name) + "/build"
	if len(params) > 0 {
		path = jobPath(name) + "/buildWithParameters"
	}
	location, err := j.client.postFormLocation(ctx, path, params)
	if err != nil {
		return api.QueueItemRef{}, fmt.Errorf("build job %q: %w", name, err)
	}
	j.client.logInfo("client.jobs.build", "job", name, "queue_item", location)
	return api.QueueItemRef{ID: queueItemID(location), URL: location}, nil
}

// Job is a handle bound to one job.
type Job struct {
	client *Client
	name   string
	url    string
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// URL returns the job URL as reported by the controller.
func (j *Job) URL() string { return j.url }

// Config fetches the job's XML configuration.
func (j *Job) Config(ctx context.Context) ([]byte, error) {
	return j.client.getRaw(ctx, jobPath(j.name)+"/config.xml")
}

// SetConfig replaces the job's XML configuration.
func (j *Job) SetConfig(ctx context.Context, configXML []byte) error {
	return j.client.postBody(ctx, jobPath(j.name)+"/config.xml", "application/xml", configXML)
}

// Enable makes the job buildable.
func (j *Job) Enable(ctx context.Context) error {
	_, err := j.client.postForm(ctx, jobPath(j.name)+"/enable", nil)
	return err
}

// Disable stops the job from being buildable.
func (j *Job) Disable(ctx context.Context) error {
	_, err := j.client.postForm(ctx, jobPath(j.name)+"/disable", nil)
	return err
}

// Delete removes the job.
func (j *Job) Delete(ctx context.Context) error {
	_, err := j.client.postForm(ctx, jobPath(j.name)+"/doDelete", nil)
	return err
}

func jobPath(name string) string {
	return "/job/" + url.PathEscape(name)
}

// queueItemID extracts the numeric id from a queue item URL such as
// http://host/queue/item/42/. Zero when the URL does not carry one.
func queueItemID(location string) int64 {
	trimmed := strings.TrimRight(location, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return 0
	}
	id, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
