// Package api defines the wire types exchanged with a buildd controller.
package api

import (
	"encoding/json"
	"slices"
)

// ResourceProperty is a single name/value property attached to a lockable resource.
type ResourceProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResourceRecord is the server-reported state of one lockable resource.
//
// Free and Reserved are independent flags reported by the server; nothing in
// this SDK assumes Free == !Reserved. Fields the SDK does not model are kept
// verbatim in Extra and survive a marshal round-trip.
type ResourceRecord struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Note        string             `json:"note,omitempty"`
	Labels      string             `json:"labels,omitempty"`
	LabelList   []string           `json:"labelsAsList,omitempty"`
	Properties  []ResourceProperty `json:"properties,omitempty"`

	Free      bool   `json:"free"`
	Locked    bool   `json:"locked"`
	LockCause string `json:"lockCause,omitempty"`
	Stolen    bool   `json:"stolen,omitempty"`
	Ephemeral bool   `json:"ephemeral,omitempty"`

	Reserved          bool   `json:"reserved"`
	ReservedBy        string `json:"reservedBy,omitempty"`
	ReservedByEmail   string `json:"reservedByEmail,omitempty"`
	ReservedTimestamp int64  `json:"reservedTimestamp,omitempty"`

	BuildName string `json:"buildName,omitempty"`

	// Extra holds fields the SDK does not model, passed through unmodified.
	Extra map[string]json.RawMessage `json:"-"`
}

// HasLabel reports whether the record carries the given label.
func (r ResourceRecord) HasLabel(label string) bool {
	return slices.Contains(r.LabelList, label)
}

// resourceRecord mirrors ResourceRecord for JSON codec use without recursing
// into the custom (un)marshal methods.
type resourceRecord ResourceRecord

var resourceRecordKeys = knownJSONKeys(resourceRecord{})

// UnmarshalJSON decodes a resource record, stashing unknown fields in Extra.
func (r *ResourceRecord) UnmarshalJSON(data []byte) error {
	var known resourceRecord
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if _, ok := resourceRecordKeys[key]; ok {
			delete(raw, key)
		}
	}
	if len(raw) > 0 {
		known.Extra = raw
	}
	*r = ResourceRecord(known)
	return nil
}

// MarshalJSON encodes the record with any Extra fields merged back in.
func (r ResourceRecord) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(resourceRecord(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, val := range r.Extra {
		if _, ok := merged[key]; !ok {
			merged[key] = val
		}
	}
	return json.Marshal(merged)
}

// ResourceListResponse is the GET envelope for the lockable-resources API.
type ResourceListResponse struct {
	Resources []ResourceRecord `json:"resources"`
}

// JobRecord summarises one job as reported by the controller's job list.
type JobRecord struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Color     string `json:"color,omitempty"`
	Buildable bool   `json:"buildable,omitempty"`
}

// JobListResponse is the GET envelope for the job list API.
type JobListResponse struct {
	Jobs []JobRecord `json:"jobs"`
}

// ViewRecord summarises one view.
type ViewRecord struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ViewListResponse is the GET envelope for the view list API.
type ViewListResponse struct {
	Views []ViewRecord `json:"views"`
}

// PluginRecord describes one installed plugin.
type PluginRecord struct {
	ShortName string `json:"shortName"`
	LongName  string `json:"longName,omitempty"`
	Version   string `json:"version,omitempty"`
	URL       string `json:"url,omitempty"`
	Active    bool   `json:"active"`
	Enabled   bool   `json:"enabled"`
	Bundled   bool   `json:"bundled,omitempty"`
	HasUpdate bool   `json:"hasUpdate,omitempty"`
}

// PluginListResponse is the GET envelope for the plugin manager API.
type PluginListResponse struct {
	Plugins []PluginRecord `json:"plugins"`
}

// CredentialRecord describes one stored credential (secrets omitted by the server).
type CredentialRecord struct {
	ID          string `json:"id"`
	TypeName    string `json:"typeName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}

// CredentialListResponse is the GET envelope for the credential store API.
type CredentialListResponse struct {
	Credentials []CredentialRecord `json:"credentials"`
}

// LabelInfo describes a node label: which nodes carry it and which jobs are tied to it.
type LabelInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Nodes       []string `json:"nodes,omitempty"`
	TiedJobs    []string `json:"tiedJobs,omitempty"`
}

// QueueItemRef points at a queued build created by a job trigger.
type QueueItemRef struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}
