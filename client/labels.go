package client

import (
	"context"
	"net/url"

	"pkt.systems/buildd/api"
)

// Label returns node-label information: which nodes carry the label and which
// jobs are tied to it.
func (c *Client) Label(ctx context.Context, name string) (api.LabelInfo, error) {
	var info api.LabelInfo
	path := "/label/" + url.PathEscape(name) + "/api/json"
	if err := c.getJSON(ctx, path, &info); err != nil {
		return api.LabelInfo{}, err
	}
	if info.Name == "" {
		info.Name = name
	}
	return info, nil
}
