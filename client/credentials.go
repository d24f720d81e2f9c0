package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"pkt.systems/buildd/api"
)

const credentialStorePath = "/credentials/store/system/domain/_"

// Credentials exposes the controller's system credential store.
type Credentials struct {
	client *Client
}

// Credentials returns the credential API accessor.
func (c *Client) Credentials() *Credentials {
	return &Credentials{client: c}
}

// CredentialSpec describes a credential to create. Secret material is sent to
// the server and never echoed back by List.
type CredentialSpec struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	Secret      string `json:"secret,omitempty"`
}

// List returns the credentials in the system domain store.
func (cr *Credentials) List(ctx context.Context) ([]api.CredentialRecord, error) {
	var resp api.CredentialListResponse
	if err := cr.client.getJSON(ctx, credentialStorePath+"/api/json?depth=1", &resp); err != nil {
		return nil, err
	}
	return resp.Credentials, nil
}

// Get returns the credential with the given id, or *UnknownCredentialError.
func (cr *Credentials) Get(ctx context.Context, id string) (api.CredentialRecord, error) {
	records, err := cr.List(ctx)
	if err != nil {
		return api.CredentialRecord{}, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return api.CredentialRecord{}, &UnknownCredentialError{ID: id}
}

// Create stores a new credential and returns its id.
func (cr *Credentials) Create(ctx context.Context, spec CredentialSpec) (string, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	form := url.Values{"json": {string(payload)}}
	if _, err := cr.client.postForm(ctx, credentialStorePath+"/createCredentials", form); err != nil {
		return "", fmt.Errorf("create credential: %w", err)
	}
	cr.client.logInfo("client.credentials.create", "id", spec.ID)
	return spec.ID, nil
}

// Delete removes the credential with the given id.
func (cr *Credentials) Delete(ctx context.Context, id string) error {
	path := credentialStorePath + "/credential/" + url.PathEscape(id) + "/doDelete"
	if _, err := cr.client.postForm(ctx, path, nil); err != nil {
		return fmt.Errorf("delete credential %q: %w", id, err)
	}
	cr.client.logInfo("client.credentials.delete", "id", id)
	return nil
}
