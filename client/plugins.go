package client

import (
	"context"
	"fmt"

	"pkt.systems/buildd/api"
)

// Plugins exposes the controller's plugin manager.
type Plugins struct {
	client *Client
}

// Plugins returns the plugin API accessor.
func (c *Client) Plugins() *Plugins {
	return &Plugins{client: c}
}

// List returns all installed plugins.
func (p *Plugins) List(ctx context.Context) ([]api.PluginRecord, error) {
	var resp api.PluginListResponse
	if err := p.client.getJSON(ctx, "/pluginManager/api/json?depth=1", &resp); err != nil {
		return nil, err
	}
	return resp.Plugins, nil
}

// Get returns the named plugin, or *UnknownPluginError.
func (p *Plugins) Get(ctx context.Context, shortName string) (api.PluginRecord, error) {
	records, err := p.List(ctx)
	if err != nil {
		return api.PluginRecord{}, err
	}
	for _, rec := range records {
		if rec.ShortName == shortName {
			return rec, nil
		}
	}
	return api.PluginRecord{}, &UnknownPluginError{ShortName: shortName}
}

// Install asks the controller to install a plugin. Version may be empty for
// the latest available.
func (p *Plugins) Install(ctx context.Context, shortName, version string) error {
	spec := shortName
	if version != "" {
		spec = shortName + "@" + version
	}
	manifest := fmt.Sprintf(`<buildd><install plugin=%q /></buildd>`, spec)
	if err := p.client.postBody(ctx, "/pluginManager/installNecessaryPlugins", "application/xml", []byte(manifest)); err != nil {
		return fmt.Errorf("install plugin %q: %w", spec, err)
	}
	p.client.logInfo("client.plugins.install", "plugin", spec)
	return nil
}

// CheckUpdatesServer asks the controller to refresh its update-site metadata.
func (p *Plugins) CheckUpdatesServer(ctx context.Context) error {
	_, err := p.client.postForm(ctx, "/pluginManager/checkUpdatesServer", nil)
	return err
}
