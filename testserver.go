package buildd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"pkt.systems/buildd/api"
	"pkt.systems/buildd/client"
)

// TestServer is an in-memory buildd controller for tests. It implements the
// HTTP surface the SDK talks to: the lockable-resources API, job CRUD, views,
// plugins, credentials, and labels. All state lives in memory behind one
// mutex, so test hooks may mutate it concurrently with SDK calls to simulate
// competing clients.
type TestServer struct {
	// URL is the controller base URL.
	URL string

	// OnPoll, when set, runs after each resource-list poll with the total
	// poll count. Tests use it to mutate state between a client's polls.
	OnPoll func(polls int)

	srv *httptest.Server

	mu          sync.Mutex
	resources   []*api.ResourceRecord
	jobs        []*testJob
	views       []*testView
	plugins     []api.PluginRecord
	credentials []api.CredentialRecord
	labels      map[string]api.LabelInfo

	queueSeq    int64
	pollCount   int
	reserveHits map[string]int
	failStatus  int
	failRemain  int
	authUser    string
	authToken   string
	requireAuth bool
}

type testJob struct {
	name      string
	config    []byte
	buildable bool
}

type testView struct {
	name string
	jobs []string
}

// TestServerOption customises StartTestServer.
type TestServerOption func(*TestServer)

// WithTestResources seeds the lockable resource pool.
func WithTestResources(records ...api.ResourceRecord) TestServerOption {
	return func(ts *TestServer) {
		for _, rec := range records {
			copied := rec
			ts.resources = append(ts.resources, &copied)
		}
	}
}

// WithTestJobs seeds jobs with a default configuration.
func WithTestJobs(names ...string) TestServerOption {
	return func(ts *TestServer) {
		for _, name := range names {
			ts.jobs = append(ts.jobs, &testJob{
				name:      name,
				config:    []byte("<project/>"),
				buildable: true,
			})
		}
	}
}

// WithTestPlugins seeds installed plugins.
func WithTestPlugins(plugins ...api.PluginRecord) TestServerOption {
	return func(ts *TestServer) {
		ts.plugins = append(ts.plugins, plugins...)
	}
}

// WithTestLabels seeds node-label metadata served by the label API.
func WithTestLabels(labels map[string]api.LabelInfo) TestServerOption {
	return func(ts *TestServer) {
		for name, info := range labels {
			ts.labels[name] = info
		}
	}
}

// WithTestAuth requires basic auth on every request.
func WithTestAuth(user, token string) TestServerOption {
	return func(ts *TestServer) {
		ts.requireAuth = true
		ts.authUser = user
		ts.authToken = token
	}
}

// FreeResource builds a free, unreserved resource record for seeding.
func FreeResource(name string, labels ...string) api.ResourceRecord {
	return api.ResourceRecord{
		Name:      name,
		Free:      true,
		Labels:    strings.Join(labels, " "),
		LabelList: labels,
	}
}

// StartTestServer runs an in-memory controller and shuts it down via t.Cleanup.
func StartTestServer(t testing.TB, opts ...TestServerOption) *TestServer {
	t.Helper()
	ts := &TestServer{
		labels:      make(map[string]api.LabelInfo),
		reserveHits: make(map[string]int),
	}
	for _, opt := range opts {
		opt(ts)
	}
	ts.srv = httptest.NewServer(ts.handler())
	ts.URL = ts.srv.URL
	t.Cleanup(ts.srv.Close)
	return ts
}

// NewClient builds an SDK client pointed at the test server.
func (ts *TestServer) NewClient(opts ...client.Option) (*client.Client, error) {
	if ts.requireAuth {
		opts = append([]client.Option{client.WithBasicAuth(ts.authUser, ts.authToken)}, opts...)
	}
	return client.New(ts.URL, opts...)
}

// FailNext makes the next n requests answer with status, simulating server
// failures visible to the SDK's transport layer.
func (ts *TestServer) FailNext(status, n int) {
	ts.mu.Lock()
	ts.failStatus = status
	ts.failRemain = n
	ts.mu.Unlock()
}

// PollCount returns how many resource-list polls have been served.
func (ts *TestServer) PollCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.pollCount
}

// ReserveAttempts returns how many reserve requests named the resource.
func (ts *TestServer) ReserveAttempts(name string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.reserveHits[name]
}

// Resource returns the current server-side record for name.
func (ts *TestServer) Resource(name string) (api.ResourceRecord, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if rec := ts.findResource(name); rec != nil {
		return *rec, true
	}
	return api.ResourceRecord{}, false
}

// SetResource replaces (or appends) a resource record wholesale.
func (ts *TestServer) SetResource(rec api.ResourceRecord) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if existing := ts.findResource(rec.Name); existing != nil {
		*existing = rec
		return
	}
	copied := rec
	ts.resources = append(ts.resources, &copied)
}

// ReserveAs marks a resource reserved by owner, simulating a competing client
// that won a race. Returns false when the resource is unknown or already
// reserved.
func (ts *TestServer) ReserveAs(name, owner string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	rec := ts.findResource(name)
	if rec == nil || rec.Reserved {
		return false
	}
	rec.Reserved = true
	rec.Free = false
	rec.ReservedBy = owner
	return true
}

// Release clears a reservation server-side regardless of owner.
func (ts *TestServer) Release(name string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	rec := ts.findResource(name)
	if rec == nil {
		return false
	}
	rec.Reserved = false
	rec.Free = true
	rec.ReservedBy = ""
	return true
}

func (ts *TestServer) findResource(name string) *api.ResourceRecord {
	for _, rec := range ts.resources {
		if rec.Name == name {
			return rec
		}
	}
	return nil
}

func (ts *TestServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /lockable-resources/api/json", ts.handleResourceList)
	mux.HandleFunc("POST /lockable-resources/reserve", ts.handleReserve)
	mux.HandleFunc("POST /lockable-resources/unreserve", ts.handleUnreserve)

	mux.HandleFunc("GET /api/json", ts.handleRootAPI)
	mux.HandleFunc("POST /createItem", ts.handleCreateItem)
	mux.HandleFunc("GET /job/{name}/config.xml", ts.handleJobConfigGet)
	mux.HandleFunc("POST /job/{name}/config.xml", ts.handleJobConfigSet)
	mux.HandleFunc("POST /job/{name}/doDelete", ts.handleJobDelete)
	mux.HandleFunc("POST /job/{name}/enable", ts.handleJobEnable)
	mux.HandleFunc("POST /job/{name}/disable", ts.handleJobDisable)
	mux.HandleFunc("POST /job/{name}/build", ts.handleJobBuild)
	mux.HandleFunc("POST /job/{name}/buildWithParameters", ts.handleJobBuild)

	mux.HandleFunc("POST /createView", ts.handleCreateView)
	mux.HandleFunc("POST /view/{name}/doDelete", ts.handleViewDelete)
	mux.HandleFunc("POST /view/{name}/addJobToView", ts.handleViewAddJob)

	mux.HandleFunc("GET /pluginManager/api/json", ts.handlePluginList)
	mux.HandleFunc("POST /pluginManager/installNecessaryPlugins", ts.handlePluginInstall)
	mux.HandleFunc("POST /pluginManager/checkUpdatesServer", ts.handleOK)

	mux.HandleFunc("GET /credentials/store/system/domain/_/api/json", ts.handleCredentialList)
	mux.HandleFunc("POST /credentials/store/system/domain/_/createCredentials", ts.handleCredentialCreate)
	mux.HandleFunc("POST /credentials/store/system/domain/_/credential/{id}/doDelete", ts.handleCredentialDelete)

	mux.HandleFunc("GET /label/{name}/api/json", ts.handleLabel)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ts.gate(w, r) {
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// gate applies injected failures and auth checks before routing.
func (ts *TestServer) gate(w http.ResponseWriter, r *http.Request) bool {
	ts.mu.Lock()
	if ts.failRemain > 0 {
		ts.failRemain--
		status := ts.failStatus
		ts.mu.Unlock()
		http.Error(w, "injected failure", status)
		return false
	}
	requireAuth, user, token := ts.requireAuth, ts.authUser, ts.authToken
	ts.mu.Unlock()
	if requireAuth {
		gotUser, gotToken, ok := r.BasicAuth()
		if !ok || gotUser != user || gotToken != token {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return false
		}
	}
	return true
}

func (ts *TestServer) handleOK(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (ts *TestServer) handleResourceList(w http.ResponseWriter, _ *http.Request) {
	ts.mu.Lock()
	ts.pollCount++
	polls := ts.pollCount
	hook := ts.OnPoll
	records := make([]api.ResourceRecord, len(ts.resources))
	for i, rec := range ts.resources {
		records[i] = *rec
	}
	ts.mu.Unlock()
	writeJSON(w, api.ResourceListResponse{Resources: records})
	if hook != nil {
		hook(polls)
	}
}

func (ts *TestServer) handleReserve(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("resource")
	owner, _, _ := r.BasicAuth()
	if owner == "" {
		owner = "anonymous"
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.reserveHits[name]++
	rec := ts.findResource(name)
	if rec == nil {
		http.Error(w, "no such resource", http.StatusNotFound)
		return
	}
	if rec.Reserved || rec.Locked {
		http.Error(w, "resource is busy", http.StatusLocked)
		return
	}
	rec.Reserved = true
	rec.Free = false
	rec.ReservedBy = owner
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleUnreserve(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("resource")
	ts.mu.Lock()
	defer ts.mu.Unlock()
	rec := ts.findResource(name)
	if rec == nil {
		http.Error(w, "no such resource", http.StatusNotFound)
		return
	}
	rec.Reserved = false
	rec.Free = true
	rec.ReservedBy = ""
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleRootAPI(w http.ResponseWriter, _ *http.Request) {
	ts.mu.Lock()
	jobs := make([]api.JobRecord, len(ts.jobs))
	for i, job := range ts.jobs {
		jobs[i] = api.JobRecord{
			Name:      job.name,
			URL:       ts.URL + "/job/" + url.PathEscape(job.name) + "/",
			Buildable: job.buildable,
		}
	}
	views := make([]api.ViewRecord, len(ts.views))
	for i, view := range ts.views {
		views[i] = api.ViewRecord{
			Name: view.name,
			URL:  ts.URL + "/view/" + url.PathEscape(view.name) + "/",
		}
	}
	ts.mu.Unlock()
	writeJSON(w, struct {
		Jobs  []api.JobRecord  `json:"jobs"`
		Views []api.ViewRecord `json:"views"`
	}{Jobs: jobs, Views: views})
}

func (ts *TestServer) findJob(name string) (int, *testJob) {
	for i, job := range ts.jobs {
		if job.name == name {
			return i, job
		}
	}
	return -1, nil
}

func (ts *TestServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, existing := ts.findJob(name); existing != nil {
		http.Error(w, "job exists", http.StatusBadRequest)
		return
	}
	config := []byte("<project/>")
	if from := r.URL.Query().Get("from"); from != "" {
		_, src := ts.findJob(from)
		if src == nil {
			http.Error(w, "no such job", http.StatusBadRequest)
			return
		}
		config = slices.Clone(src.config)
	} else if len(body) > 0 {
		config = body
	}
	ts.jobs = append(ts.jobs, &testJob{name: name, config: config, buildable: true})
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleJobConfigGet(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	_, job := ts.findJob(r.PathValue("name"))
	var config []byte
	if job != nil {
		config = slices.Clone(job.config)
	}
	ts.mu.Unlock()
	if job == nil {
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(config)
}

func (ts *TestServer) handleJobConfigSet(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, job := ts.findJob(r.PathValue("name"))
	if job == nil {
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}
	job.config = body
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleJobDelete(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	idx, job := ts.findJob(r.PathValue("name"))
	if job == nil {
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}
	ts.jobs = slices.Delete(ts.jobs, idx, idx+1)
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleJobEnable(w http.ResponseWriter, r *http.Request) {
	ts.setJobBuildable(w, r, true)
}

func (ts *TestServer) handleJobDisable(w http.ResponseWriter, r *http.Request) {
	ts.setJobBuildable(w, r, false)
}

func (ts *TestServer) setJobBuildable(w http.ResponseWriter, r *http.Request, buildable bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, job := ts.findJob(r.PathValue("name"))
	if job == nil {
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}
	job.buildable = buildable
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleJobBuild(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	_, job := ts.findJob(r.PathValue("name"))
	if job == nil {
		ts.mu.Unlock()
		http.Error(w, "no such job", http.StatusNotFound)
		return
	}
	ts.queueSeq++
	seq := ts.queueSeq
	ts.mu.Unlock()
	w.Header().Set("Location", fmt.Sprintf("%s/queue/item/%d/", ts.URL, seq))
	w.WriteHeader(http.StatusCreated)
}

func (ts *TestServer) findView(name string) (int, *testView) {
	for i, view := range ts.views {
		if view.name == name {
			return i, view
		}
	}
	return -1, nil
}

func (ts *TestServer) handleCreateView(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("name")
	if name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if _, existing := ts.findView(name); existing != nil {
		http.Error(w, "view exists", http.StatusBadRequest)
		return
	}
	ts.views = append(ts.views, &testView{name: name})
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleViewDelete(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	idx, view := ts.findView(r.PathValue("name"))
	if view == nil {
		http.Error(w, "no such view", http.StatusNotFound)
		return
	}
	ts.views = slices.Delete(ts.views, idx, idx+1)
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleViewAddJob(w http.ResponseWriter, r *http.Request) {
	job := r.PostFormValue("name")
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, view := ts.findView(r.PathValue("name"))
	if view == nil {
		http.Error(w, "no such view", http.StatusNotFound)
		return
	}
	if _, j := ts.findJob(job); j == nil {
		http.Error(w, "no such job", http.StatusBadRequest)
		return
	}
	if !slices.Contains(view.jobs, job) {
		view.jobs = append(view.jobs, job)
	}
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handlePluginList(w http.ResponseWriter, _ *http.Request) {
	ts.mu.Lock()
	plugins := slices.Clone(ts.plugins)
	ts.mu.Unlock()
	writeJSON(w, api.PluginListResponse{Plugins: plugins})
}

var pluginSpecRe = regexp.MustCompile(`plugin="([^"@]+)(?:@([^"]+))?"`)

func (ts *TestServer) handlePluginInstall(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	match := pluginSpecRe.FindSubmatch(body)
	if match == nil {
		http.Error(w, "no plugin spec", http.StatusBadRequest)
		return
	}
	shortName, version := string(match[1]), string(match[2])
	if version == "" {
		version = "latest"
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for i, plugin := range ts.plugins {
		if plugin.ShortName == shortName {
			ts.plugins[i].Version = version
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	ts.plugins = append(ts.plugins, api.PluginRecord{
		ShortName: shortName,
		LongName:  shortName,
		Version:   version,
		Active:    true,
		Enabled:   true,
	})
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleCredentialList(w http.ResponseWriter, _ *http.Request) {
	ts.mu.Lock()
	creds := slices.Clone(ts.credentials)
	ts.mu.Unlock()
	writeJSON(w, api.CredentialListResponse{Credentials: creds})
}

func (ts *TestServer) handleCredentialCreate(w http.ResponseWriter, r *http.Request) {
	payload := r.PostFormValue("json")
	var spec struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Username    string `json:"username"`
	}
	if err := json.Unmarshal([]byte(payload), &spec); err != nil {
		http.Error(w, "bad credential payload", http.StatusBadRequest)
		return
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.credentials = append(ts.credentials, api.CredentialRecord{
		ID:          spec.ID,
		TypeName:    "Username with password",
		DisplayName: spec.Username,
		Description: spec.Description,
	})
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleCredentialDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for i, cred := range ts.credentials {
		if cred.ID == id {
			ts.credentials = slices.Delete(ts.credentials, i, i+1)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	http.Error(w, "no such credential", http.StatusNotFound)
}

func (ts *TestServer) handleLabel(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ts.mu.Lock()
	info, ok := ts.labels[name]
	ts.mu.Unlock()
	if !ok {
		info = api.LabelInfo{Name: name}
	}
	writeJSON(w, info)
}
