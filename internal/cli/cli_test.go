package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/aybuctl/internal/config"
	"github.com/shaiso/aybuctl/internal/events"
	"github.com/shaiso/aybuctl/internal/telemetry"
	"github.com/shaiso/aybuctl/internal/transport"
)

// --- шина в памяти ---

type memFeed struct {
	frames chan [][]byte
	closed chan struct{}
	once   sync.Once

	mu           sync.Mutex
	subscribed   []string
	unsubscribed []string
}

func newMemFeed() *memFeed {
	return &memFeed{
		frames: make(chan [][]byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *memFeed) publish(topic, msg string) {
	f.frames <- [][]byte{[]byte(topic), []byte(msg)}
}

func (f *memFeed) Subscribe(prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, prefix)
	return nil
}

func (f *memFeed) Unsubscribe(prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, prefix)
	return nil
}

func (f *memFeed) Recv() ([][]byte, error) {
	select {
	case fr := <-f.frames:
		return fr, nil
	case <-f.closed:
		return nil, errors.New("closed")
	}
}

func (f *memFeed) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *memFeed) prefixes() (sub, unsub []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribed...), append([]string(nil), f.unsubscribed...)
}

// --- фейковый API ---

type apiRequest struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	Header http.Header
}

type fakeAPI struct {
	t    *testing.T
	srv  *httptest.Server
	feed *memFeed

	mu       sync.Mutex
	requests []apiRequest

	// handle отвечает на запрос. По умолчанию — 200 и пустой JSON.
	handle func(w http.ResponseWriter, r apiRequest)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{t: t, feed: newMemFeed()}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		req := apiRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Form:   r.PostForm,
			Header: r.Header.Clone(),
		}

		api.mu.Lock()
		api.requests = append(api.requests, req)
		handle := api.handle
		api.mu.Unlock()

		if handle == nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		handle(w, req)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) last() apiRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(a.t, a.requests)
	return a.requests[len(a.requests)-1]
}

func (a *fakeAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

// acceptTask отвечает как сервер с синхронной задачей и публикует её события.
func (a *fakeAPI) acceptTask(events ...[2]string) func(http.ResponseWriter, apiRequest) {
	return func(w http.ResponseWriter, r apiRequest) {
		id := r.Header.Get(transport.HeaderTaskUUID)
		w.Header().Set(transport.HeaderTaskUUID, id)
		w.Header().Set(transport.HeaderTaskStatus, "QUEUED")
		w.WriteHeader(http.StatusOK)
		for _, ev := range events {
			a.feed.publish(id+"."+ev[0], ev[1])
		}
	}
}

func jsonBody(body string) func(http.ResponseWriter, apiRequest) {
	return func(w http.ResponseWriter, _ apiRequest) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

type harness struct {
	api    *fakeAPI
	env    *Env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	dials  int
}

func newHarness(t *testing.T, jsonMode bool) *harness {
	t.Helper()

	h := &harness{
		api:    newFakeAPI(t),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}

	cfg := config.Default()
	cfg.Remote.Host = h.api.srv.URL
	cfg.Remote.SubscriptionAddr = "tcp://localhost:8999"
	cfg.Remote.Username = "admin@example.com"
	cfg.Remote.Password = "secret"
	cfg.Remote.Timeout = 5 * time.Second

	h.env = NewEnv(&cfg, nil, NewOutputTo(jsonMode, h.stdout, h.stderr), telemetry.NewMetrics())
	h.env.dial = func(context.Context, string, events.DialOptions) (events.Feed, error) {
		h.dials++
		return h.api.feed, nil
	}
	t.Cleanup(func() { h.env.Close() })
	return h
}

func (h *harness) run(ctx context.Context, args ...string) error {
	for _, r := range Resources() {
		if r.Name() != args[0] {
			continue
		}
		cmd := NewResourceCmd(r, func() *Env { return h.env })
		cmd.SetArgs(args[1:])
		cmd.SetOut(h.stdout)
		cmd.SetErr(h.stderr)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return cmd.ExecuteContext(ctx)
	}
	return errors.New("unknown resource " + args[0])
}

// --- тесты ---

func TestResources_Registry(t *testing.T) {
	names := map[string]bool{}
	for _, r := range Resources() {
		names[r.Name()] = true
		assert.NotEmpty(t, r.Short())
		assert.NotEmpty(t, r.Commands(func() *Env { return nil }))
	}
	for _, n := range []string{"instances", "tasks", "envs", "themes", "groups", "users", "redirects", "archives", "aliases"} {
		assert.True(t, names[n], n)
	}
}

func TestInstancesDeploy_FollowsTask(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = h.api.acceptTask(
		[2]string{"info", "creating database"},
		[2]string{"deploy.warning", "theme missing"},
		[2]string{"finished", "deployed"},
	)

	err := h.run(context.Background(), "instances", "deploy", "a.com", "production", "owner@a.com", "tech@a.com")
	require.NoError(t, err)

	req := h.api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/instances", req.Path)
	assert.Equal(t, "a.com", req.Form.Get("domain"))
	assert.Equal(t, "production", req.Form.Get("environment_name"))
	assert.Equal(t, "owner@a.com", req.Form.Get("owner_email"))
	assert.Equal(t, "tech@a.com", req.Form.Get("technical_contact_email"))
	assert.Equal(t, "it", req.Form.Get("default_language"))
	assert.Equal(t, "true", req.Form.Get("enabled"))

	id := req.Header.Get(transport.HeaderTaskUUID)
	require.NotEmpty(t, id)
	assert.Contains(t, h.stderr.String(), "finished: deployed")

	sub, unsub := h.api.feed.prefixes()
	assert.Equal(t, []string{id}, sub)
	assert.Equal(t, []string{id}, unsub)
}

func TestInstancesActions(t *testing.T) {
	tests := []struct {
		args   []string
		path   string
		action string
		extra  url.Values
	}{
		{[]string{"enable", "a.com"}, "/instances/a.com", "enable", nil},
		{[]string{"flush", "a.com"}, "/instances/a.com", "flush_cache", nil},
		{[]string{"sentence", "a.com"}, "/instances/a.com", "sentence", nil},
		{[]string{"archive", "a.com"}, "/instances/a.com", "archive", nil},
		{[]string{"restore", "a.com", "backup-1"}, "/instances/a.com", "restore", url.Values{"archive": {"backup-1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			h := newHarness(t, false)
			h.api.handle = h.api.acceptTask([2]string{"finished", ""})

			require.NoError(t, h.run(context.Background(), append([]string{"instances"}, tt.args...)...))

			req := h.api.last()
			assert.Equal(t, http.MethodPut, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.Equal(t, tt.action, req.Form.Get("action"))
			for k := range tt.extra {
				assert.Equal(t, tt.extra.Get(k), req.Form.Get(k))
			}
		})
	}
}

func TestTracked_Deferred(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = func(w http.ResponseWriter, r apiRequest) {
		w.Header().Set(transport.HeaderTaskUUID, r.Header.Get(transport.HeaderTaskUUID))
		w.Header().Set(transport.HeaderTaskStatus, "DEFERRED")
	}

	require.NoError(t, h.run(context.Background(), "archives", "create", "a.com", "-n", "nightly"))

	req := h.api.last()
	assert.Equal(t, "/archives", req.Path)
	assert.Equal(t, "nightly", req.Form.Get("name"))
	assert.Contains(t, h.stderr.String(), "deferred")
}

func TestTracked_NoWait(t *testing.T) {
	h := newHarness(t, true)
	h.env.NoWait = true
	h.api.handle = h.api.acceptTask()

	require.NoError(t, h.run(context.Background(), "aliases", "create", "www.a.com", "a.com"))

	assert.Zero(t, h.dials)
	assert.JSONEq(t, `{"id":"`+h.api.last().Header.Get(transport.HeaderTaskUUID)+`","task_id":"`+h.api.last().Header.Get(transport.HeaderTaskUUID)+`","status":"ACCEPTED","state":"SUBMITTED","events":0}`, h.stdout.String())
}

func TestTracked_Rejected(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = func(w http.ResponseWriter, _ apiRequest) {
		w.Header().Set(transport.HeaderRequestError, "instance already exists")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"ignored"}`))
	}

	err := h.run(context.Background(), "instances", "deploy", "a.com", "production", "o@a.com", "t@a.com")
	require.Error(t, err)

	var reqErr *transport.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusConflict, reqErr.StatusCode)
	assert.Equal(t, "instance already exists", reqErr.Message)

	// подписка снята, хотя событий не было
	sub, unsub := h.api.feed.prefixes()
	assert.Equal(t, sub, unsub)
}

func TestTracked_Interrupted(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = h.api.acceptTask([2]string{"info", "working"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.run(ctx, "instances", "reload", "a.com")
	}()

	// ответ прочитан — Executor перешёл к ожиданию событий
	require.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(h.env.Metrics.Registry(), "aybuctl_http_requests_total")
		return err == nil && n > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("command did not return after interrupt")
	}
	assert.Contains(t, h.stderr.String(), "interrupted")
}

func TestList_TextAndJSON(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = jsonBody(`["b.com","a.com"]`)

	require.NoError(t, h.run(context.Background(), "instances", "list"))
	assert.Equal(t, " * b.com\n * a.com\n", h.stdout.String())
	assert.Equal(t, "/instances", h.api.last().Path)

	h = newHarness(t, true)
	h.api.handle = jsonBody(`{"production":{},"staging":{}}`)

	require.NoError(t, h.run(context.Background(), "envs", "list"))
	assert.Equal(t, "/environments", h.api.last().Path)
	assert.JSONEq(t, `{"production":{},"staging":{}}`, h.stdout.String())
}

func TestOutput_Messages(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := NewOutputTo(false, &stdout, &stderr)

	out.Success("done")
	out.Notice("slow")
	out.Error("boom")

	assert.Empty(t, stdout.String())
	assert.Equal(t, "done\nWarning: slow\nError: boom\n", stderr.String())
}

func TestInfo_FieldsInDocumentOrder(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = jsonBody(`{"name":"admins","instance":null,"users":2}`)

	require.NoError(t, h.run(context.Background(), "groups", "info", "admins"))

	assert.Equal(t, "/groups/admins", h.api.last().Path)
	want := fmt.Sprintf("%-20s: admins\n%-20s: \n%-20s: 2\n", "name", "instance", "users")
	assert.Equal(t, want, h.stdout.String())
}

func TestTasksLogs(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = jsonBody(`["started \n", "  done"]`)

	require.NoError(t, h.run(context.Background(), "tasks", "logs", "42"))

	assert.Equal(t, "/tasks/42/logs", h.api.last().Path)
	assert.Equal(t, "started\ndone\n", h.stdout.String())
}

func TestTasksFlush(t *testing.T) {
	h := newHarness(t, false)

	require.NoError(t, h.run(context.Background(), "tasks", "flush"))
	assert.Equal(t, http.MethodDelete, h.api.last().Method)
	assert.Equal(t, "/tasks", h.api.last().Path)

	require.NoError(t, h.run(context.Background(), "tasks", "flush-logs", "42"))
	assert.Equal(t, "/tasks/42/logs", h.api.last().Path)
}

func TestUsersCreate(t *testing.T) {
	h := newHarness(t, false)

	err := h.run(context.Background(), "users", "create", "bob@example.com",
		"-p", "pw", "-n", "Bob", "-s", "Smith", "-G", "admin, staff,", "-a", "https://bob.example.com")
	require.NoError(t, err)

	req := h.api.last()
	assert.Equal(t, "/users", req.Path)
	assert.Equal(t, "bob@example.com", req.Form.Get("email"))
	assert.Equal(t, []string{"admin", "staff"}, req.Form["groups"])
	assert.Equal(t, "https://bob.example.com", req.Form.Get("web"))
	_, hasCompany := req.Form["company"]
	assert.False(t, hasCompany)
}

func TestUsersCreate_Validation(t *testing.T) {
	h := newHarness(t, false)

	err := h.run(context.Background(), "users", "create", "bob@example.com", "-n", "Bob", "-s", "Smith")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing password")

	err = h.run(context.Background(), "users", "create", "not-an-email", "-p", "pw", "-n", "Bob", "-s", "Smith")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email")

	assert.Zero(t, h.api.count())
}

func TestUsersUpdate(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = jsonBody(`{"email":"bob@example.com"}`)

	err := h.run(context.Background(), "users", "update", "bob@example.com", "firstName=Robert", "groups=a,b")
	require.NoError(t, err)

	req := h.api.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/users/bob@example.com", req.Path)
	assert.Equal(t, "Robert", req.Form.Get("first_name"))
	assert.Equal(t, []string{"a", "b"}, req.Form["groups"])
	assert.Contains(t, h.stdout.String(), "bob@example.com")
}

func TestUsersCheckLogin_DefaultsToConfiguredUser(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = jsonBody(`{"allowed":true}`)

	require.NoError(t, h.run(context.Background(), "users", "check-login", "a.com"))

	req := h.api.last()
	assert.Equal(t, "/users/admin@example.com", req.Path)
	assert.Equal(t, "login", req.Query.Get("action"))
	assert.Equal(t, "a.com", req.Query.Get("domain"))
}

func TestUsersAllowedInstances_Sorted(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = jsonBody(`{"c.com":{},"a.com":{},"b.com":{}}`)

	require.NoError(t, h.run(context.Background(), "users", "allowed-instances", "bob@example.com"))
	assert.Equal(t, "/users/bob@example.com/instances", h.api.last().Path)
	assert.Equal(t, " * a.com\n * b.com\n * c.com\n", h.stdout.String())
}

func TestGroupsUpdate(t *testing.T) {
	h := newHarness(t, false)

	err := h.run(context.Background(), "groups", "update", "admins")
	require.Error(t, err)
	assert.Zero(t, h.api.count())

	require.NoError(t, h.run(context.Background(), "groups", "update", "admins", "--instance", ""))
	req := h.api.last()
	_, ok := req.Form["instance"]
	assert.True(t, ok)
	_, ok = req.Form["name"]
	assert.False(t, ok)
}

func TestThemesCreate(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = jsonBody(`{"name":"uffizi"}`)

	err := h.run(context.Background(), "themes", "create",
		"-t", "uffizi", "-a", "a@x.it", "-o", "o@x.it",
		"-b", "920x240", "-l", "100X40", "-L", "2", "-T", "3", "-I", "600")
	require.NoError(t, err)

	req := h.api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/themes", req.Path)
	assert.Equal(t, "920", req.Form.Get("banner_width"))
	assert.Equal(t, "240", req.Form.Get("banner_height"))
	assert.Equal(t, "100", req.Form.Get("logo_width"))
	assert.Equal(t, "40", req.Form.Get("logo_height"))
	assert.Equal(t, "600", req.Form.Get("image_full_size"))
	_, hasParent := req.Form["parent"]
	assert.False(t, hasParent)
	assert.Contains(t, h.stdout.String(), "uffizi")
}

func TestThemesCreate_InvalidSize(t *testing.T) {
	h := newHarness(t, false)

	err := h.run(context.Background(), "themes", "create",
		"-t", "uffizi", "-a", "a@x.it", "-o", "o@x.it",
		"-b", "wide", "-l", "100x40", "-L", "2", "-T", "3", "-I", "600")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banner size")
	assert.Zero(t, h.api.count())
}

func TestThemesUpdate(t *testing.T) {
	h := newHarness(t, false)

	require.NoError(t, h.run(context.Background(), "themes", "update", "uffizi", "logo-width=120"))

	req := h.api.last()
	assert.Equal(t, "/themes/uffizi", req.Path)
	assert.Equal(t, "uffizi", req.Form.Get("name"))
	assert.Equal(t, "120", req.Form.Get("logo_width"))
}

func TestRedirectsList(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = jsonBody(`{"old.com":{"destination":"new.com","target_path":"/blog","http_code":301}}`)

	require.NoError(t, h.run(context.Background(), "redirects", "list"))

	out := h.stdout.String()
	assert.Contains(t, out, "SOURCE")
	assert.Contains(t, out, "old.com")
	assert.Contains(t, out, "new.com")
	assert.Contains(t, out, "/blog")
	assert.Contains(t, out, "301")
}

func TestRedirectsEdit(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = h.api.acceptTask([2]string{"finished", ""})

	err := h.run(context.Background(), "redirects", "edit", "old.com")
	require.Error(t, err)
	assert.Zero(t, h.api.count())

	require.NoError(t, h.run(context.Background(), "redirects", "edit", "old.com", "-p", "", "-c", "302"))
	req := h.api.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "302", req.Form.Get("http_code"))
	_, ok := req.Form["target_path"]
	assert.True(t, ok)
}

func TestArchivesDownload(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = func(w http.ResponseWriter, _ apiRequest) {
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write([]byte("\x1f\x8b archive bytes"))
	}

	dir := t.TempDir()
	require.NoError(t, h.run(context.Background(), "archives", "download", "nightly", dir))

	data, err := os.ReadFile(filepath.Join(dir, "nightly.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, "\x1f\x8b archive bytes", string(data))

	dest := filepath.Join(dir, "copy")
	require.NoError(t, h.run(context.Background(), "archives", "download", "nightly", dest))
	_, err = os.Stat(dest + ".tar.gz")
	assert.NoError(t, err)
}

func TestDeleteCommands(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.run(context.Background(), "envs", "delete", "staging"))
	assert.Equal(t, http.MethodDelete, h.api.last().Method)
	assert.Equal(t, "/environments/staging", h.api.last().Path)
	assert.Zero(t, h.dials)

	h = newHarness(t, false)
	h.api.handle = h.api.acceptTask([2]string{"finished", "removed"})
	require.NoError(t, h.run(context.Background(), "instances", "delete", "a.com"))
	assert.Equal(t, http.MethodDelete, h.api.last().Method)
	assert.NotEmpty(t, h.api.last().Header.Get(transport.HeaderTaskUUID))
	assert.Equal(t, 1, h.dials)
}

func TestSubscriberSharedAcrossTasks(t *testing.T) {
	h := newHarness(t, false)
	h.api.handle = h.api.acceptTask([2]string{"finished", ""})

	require.NoError(t, h.run(context.Background(), "aliases", "delete", "www.a.com"))
	first := h.api.last().Header.Get(transport.HeaderTaskUUID)
	require.NoError(t, h.run(context.Background(), "aliases", "delete", "www.b.com"))
	second := h.api.last().Header.Get(transport.HeaderTaskUUID)

	assert.Equal(t, 1, h.dials)
	assert.NotEqual(t, first, second)
}

func TestParseAttributes(t *testing.T) {
	attrs, err := parseAttributes([]string{"bannerWidth=10", "name=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"banner_width": "10", "name": "a=b"}, attrs)

	_, err = parseAttributes(nil)
	assert.Error(t, err)

	_, err = parseAttributes([]string{"novalue"})
	assert.Error(t, err)
}

func TestCollectionURL(t *testing.T) {
	c := newCollection("envs", "/environments")
	assert.Equal(t, "/environments/prod/logs", c.url("prod", "logs"))
	assert.Equal(t, "/environments/a%2Fb", c.url("a/b"))
	assert.Equal(t, "/users", newCollection("users", "").root)
}
