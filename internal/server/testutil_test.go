package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/uabbasi/good-measure-giving/internal/catalog"
	"github.com/uabbasi/good-measure-giving/internal/config"
	"github.com/uabbasi/good-measure-giving/internal/recap"
	"github.com/uabbasi/good-measure-giving/internal/store"
	"github.com/uabbasi/good-measure-giving/internal/types"
)

// memStore is an in-memory store.Store used by the handler tests. It follows
// the driver contract: canonical post-write state, store.ErrNotFound for
// missing rows, defaults filled on donation writes.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]store.User
	profiles  map[uuid.UUID]types.UserProfile
	bookmarks map[uuid.UUID][]types.Bookmark
	donations map[uuid.UUID][]types.Donation
	targets   map[uuid.UUID][]types.CharityTarget
	plans     map[uuid.UUID]map[int]types.Plan

	// failOn makes the named method return failErr, for 500-path tests.
	failOn  string
	failErr error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uuid.UUID]store.User),
		profiles:  make(map[uuid.UUID]types.UserProfile),
		bookmarks: make(map[uuid.UUID][]types.Bookmark),
		donations: make(map[uuid.UUID][]types.Donation),
		targets:   make(map[uuid.UUID][]types.CharityTarget),
		plans:     make(map[uuid.UUID]map[int]types.Plan),
	}
}

func (m *memStore) fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn, m.failErr = method, err
}

func (m *memStore) failed(method string) error {
	if m.failOn == method {
		return m.failErr
	}
	return nil
}

func (m *memStore) CreateUser(_ context.Context, displayName, email, passwordHash string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("CreateUser"); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return nil, store.ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	u := store.User{
		ID:           uuid.New(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[u.ID] = u
	return &u, nil
}

func (m *memStore) GetUser(_ context.Context, id uuid.UUID) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("GetUser"); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("GetUserByEmail"); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("UpdatePassword"); err != nil {
		return err
	}
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return nil
}

func (m *memStore) GetProfile(_ context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("GetProfile"); err != nil {
		return nil, err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) UpsertProfile(_ context.Context, profile types.UserProfile) (*types.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("UpsertProfile"); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if existing, ok := m.profiles[profile.UserID]; ok {
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	m.profiles[profile.UserID] = profile
	return &profile, nil
}

func (m *memStore) ListBookmarks(_ context.Context, userID uuid.UUID) ([]types.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("ListBookmarks"); err != nil {
		return nil, err
	}
	out := append([]types.Bookmark{}, m.bookmarks[userID]...)
	return out, nil
}

func (m *memStore) AddBookmark(_ context.Context, userID uuid.UUID, ein string) (*types.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("AddBookmark"); err != nil {
		return nil, err
	}
	for _, b := range m.bookmarks[userID] {
		if b.EIN == ein {
			return &b, nil
		}
	}
	b := types.Bookmark{UserID: userID, EIN: ein, CreatedAt: time.Now().UTC()}
	m.bookmarks[userID] = append(m.bookmarks[userID], b)
	return &b, nil
}

func (m *memStore) RemoveBookmark(_ context.Context, userID uuid.UUID, ein string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("RemoveBookmark"); err != nil {
		return err
	}
	list := m.bookmarks[userID]
	for i, b := range list {
		if b.EIN == ein {
			m.bookmarks[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListDonations(_ context.Context, userID uuid.UUID, year int) ([]types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("ListDonations"); err != nil {
		return nil, err
	}
	out := []types.Donation{}
	for _, d := range m.donations[userID] {
		if year == 0 || d.DonatedOn.Year() == year {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DonatedOn.Time.After(out[j].DonatedOn.Time)
	})
	return out, nil
}

func (m *memStore) GetDonation(_ context.Context, userID, id uuid.UUID) (*types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("GetDonation"); err != nil {
		return nil, err
	}
	for _, d := range m.donations[userID] {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, store.ErrNotFound
}

// fillDonationDefaults mirrors the driver-side normalization.
func fillDonationDefaults(d *types.Donation) error {
	if d.EIN != "" {
		ein, err := types.NormalizeEIN(d.EIN)
		if err != nil {
			return err
		}
		d.EIN = ein
	}
	if d.Currency == "" {
		d.Currency = "USD"
	}
	if d.Kind == "" {
		d.Kind = types.KindOther
	}
	if !d.Kind.IsValid() {
		return types.ErrInvalidGivingKind
	}
	if d.DonatedOn.IsZero() {
		now := time.Now().UTC()
		d.DonatedOn = types.NewDate(now.Year(), now.Month(), now.Day())
	}
	return nil
}

func (m *memStore) CreateDonation(_ context.Context, d types.Donation) (*types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("CreateDonation"); err != nil {
		return nil, err
	}
	if err := fillDonationDefaults(&d); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	m.donations[d.UserID] = append(m.donations[d.UserID], d)
	return &d, nil
}

func (m *memStore) UpdateDonation(_ context.Context, d types.Donation) (*types.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("UpdateDonation"); err != nil {
		return nil, err
	}
	if err := fillDonationDefaults(&d); err != nil {
		return nil, err
	}
	list := m.donations[d.UserID]
	for i, existing := range list {
		if existing.ID == d.ID {
			d.CreatedAt = existing.CreatedAt
			d.UpdatedAt = time.Now().UTC()
			list[i] = d
			return &d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) DeleteDonation(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("DeleteDonation"); err != nil {
		return err
	}
	list := m.donations[userID]
	for i, d := range list {
		if d.ID == id {
			m.donations[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListTargets(_ context.Context, userID uuid.UUID) ([]types.CharityTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("ListTargets"); err != nil {
		return nil, err
	}
	out := append([]types.CharityTarget{}, m.targets[userID]...)
	return out, nil
}

func (m *memStore) SetTarget(_ context.Context, target types.CharityTarget) (*types.CharityTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("SetTarget"); err != nil {
		return nil, err
	}
	target.UpdatedAt = time.Now().UTC()
	list := m.targets[target.UserID]
	for i, t := range list {
		if t.EIN == target.EIN {
			list[i] = target
			return &target, nil
		}
	}
	m.targets[target.UserID] = append(list, target)
	return &target, nil
}

func (m *memStore) RemoveTarget(_ context.Context, userID uuid.UUID, ein string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("RemoveTarget"); err != nil {
		return err
	}
	list := m.targets[userID]
	for i, t := range list {
		if t.EIN == ein {
			m.targets[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) GetPlan(_ context.Context, userID uuid.UUID, year int) (*types.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("GetPlan"); err != nil {
		return nil, err
	}
	p, ok := m.plans[userID][year]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := clonePlanForTest(p)
	return &out, nil
}

func (m *memStore) SavePlan(_ context.Context, userID uuid.UUID, plan types.Plan) (*types.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed("SavePlan"); err != nil {
		return nil, err
	}
	plan.UpdatedAt = time.Now().UTC()
	if m.plans[userID] == nil {
		m.plans[userID] = make(map[int]types.Plan)
	}
	m.plans[userID][plan.Year] = clonePlanForTest(plan)

	// Targets assigned to a bucket that no longer exists become unassigned,
	// like the real drivers do.
	buckets := make(map[uuid.UUID]bool, len(plan.Buckets))
	for _, b := range plan.Buckets {
		buckets[b.ID] = true
	}
	for i, t := range m.targets[userID] {
		if t.BucketID != nil && !buckets[*t.BucketID] {
			m.targets[userID][i].BucketID = nil
		}
	}

	out := clonePlanForTest(plan)
	return &out, nil
}

func clonePlanForTest(p types.Plan) types.Plan {
	out := p
	out.Buckets = make([]types.Bucket, len(p.Buckets))
	for i, b := range p.Buckets {
		out.Buckets[i] = b
		if b.Causes != nil {
			out.Buckets[i].Causes = append([]string(nil), b.Causes...)
		}
		if b.CharityTargets != nil {
			out.Buckets[i].CharityTargets = append([]types.CharitySubTarget(nil), b.CharityTargets...)
		}
	}
	return out
}

func (m *memStore) EnsureSchema(context.Context) error { return nil }
func (m *memStore) Ping(context.Context) error         { return nil }
func (m *memStore) Close()                             {}

// testServer bundles a fully wired server with its fake store.
type testServer struct {
	srv     *Server
	store   *memStore
	handler http.Handler
}

// newTestServer builds a server over a fake store and an empty catalog.
// Options adjust the Config before New runs.
func newTestServer(t *testing.T, opts ...func(*Config)) *testServer {
	t.Helper()

	t.Setenv("JWT_SECRET", "test-secret-0123456789abcdef-0123456789")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	st := newMemStore()

	cat := catalog.New(t.TempDir())
	require.NoError(t, cat.Load())

	cfg := Config{
		Server: &config.ServerConfig{
			Addr:            ":0",
			DataDir:         t.TempDir(),
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
		},
		Store:   st,
		Catalog: cat,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := New(cfg)
	require.NoError(t, err)

	return &testServer{srv: srv, store: st, handler: srv.Handler()}
}

// do runs one request through the full middleware chain. A non-nil body is
// sent as JSON; a non-empty token goes in the Authorization header.
func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

// decode unmarshals a recorded JSON body into out.
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

// register creates an account through the API and returns the user and a
// valid bearer token.
func (ts *testServer) register(t *testing.T, name, email, password string) (types.User, string) {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/auth/register", types.CreateUserRequest{
		DisplayName: name,
		Email:       email,
		Password:    password,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, "register failed: %s", w.Body.String())

	var resp types.LoginResponse
	decode(t, w, &resp)
	require.NotNil(t, resp.User)
	require.NotEmpty(t, resp.Token)
	return *resp.User, resp.Token
}

// newTestCatalog writes catalog fixtures into a temp dir and loads them.
func newTestCatalog(t *testing.T, profiles ...types.CharityProfile) *catalog.Catalog {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "charities"), 0o755))

	summaries := make([]types.CharitySummary, 0, len(profiles))
	for _, p := range profiles {
		summaries = append(summaries, types.CharitySummary{
			EIN:     p.EIN,
			Name:    p.Name,
			Mission: p.Mission,
			Causes:  p.Causes,
			Country: p.Country,
		})
		data, err := json.Marshal(p)
		require.NoError(t, err)
		path := filepath.Join(dir, "charities", fmt.Sprintf("charity-%s.json", p.EIN))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}

	index, err := json.Marshal(summaries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "charities.json"), index, 0o644))

	cat := catalog.New(dir)
	require.NoError(t, cat.Load())
	return cat
}

// fakeLLM is a canned llm.Client for recap tests.
type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) Model() string { return "fake" }
func (f *fakeLLM) Close() error  { return nil }

// withRecap wires a recap service backed by a fake model into the server.
func withRecap(client *fakeLLM) func(*Config) {
	return func(cfg *Config) {
		cfg.Recap = recap.NewService(client)
	}
}

// withCatalog replaces the default empty catalog.
func withCatalog(cat *catalog.Catalog) func(*Config) {
	return func(cfg *Config) {
		cfg.Catalog = cat
	}
}
