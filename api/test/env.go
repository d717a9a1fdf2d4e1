package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/cgmart/cgmart/api"
	"github.com/cgmart/cgmart/core/catalog"
	"github.com/cgmart/cgmart/core/download"
	"github.com/cgmart/cgmart/core/favorite"
	"github.com/cgmart/cgmart/core/order"
	"github.com/cgmart/cgmart/core/payment"
	"github.com/cgmart/cgmart/core/user"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// TestEnv runs the whole API in-process over the memory adapters, so flow
// tests exercise real routing, sessions and middleware without a database.
type TestEnv struct {
	URL    string
	Server *httptest.Server

	Users     *user.Memory
	Favorites *favorite.Memory
	Catalog   *catalog.Memory
	Orders    *order.Memory
	Grants    *download.Memory
	Products  []catalog.Product

	AdminEmail string
	AdminPass  string

	WebhookSecret string

	client *http.Client
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	env := &TestEnv{
		Users:         user.NewMemory(),
		Favorites:     favorite.NewMemory(),
		Catalog:       catalog.NewMemory(),
		Orders:        order.NewMemory(),
		Grants:        download.NewMemory(),
		AdminEmail:    "admin@cgmart.test",
		AdminPass:     "admin-pass-123",
		WebhookSecret: "callback-test-secret",
	}

	now := time.Now().UTC()
	env.Products = []catalog.Product{
		{ID: 1, Name: "warrior rig", Price: 4999, DownloadURL: "/files/warrior.zip", CreatedAt: now, UpdatedAt: now},
		{ID: 2, Name: "run cycle pack", Price: 2500, DownloadURL: "/files/run.fbx", CreatedAt: now, UpdatedAt: now},
		{ID: 3, Name: "city blockout", Price: 12000, DownloadURL: "/files/city.blend", CreatedAt: now, UpdatedAt: now},
	}
	for _, p := range env.Products {
		env.Catalog.Add(p)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(env.AdminPass), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing admin password: %v", err)
	}
	if _, err := env.Users.Create(context.Background(), user.User{
		Email:        env.AdminEmail,
		Username:     "admin",
		Admin:        true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("seeding admin user: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	issuer := download.NewIssuer(env.Grants, 7*24*time.Hour)

	mux := api.APIMux(api.APIConfig{
		Log:           logger,
		Session:       scs.New(),
		Users:         env.Users,
		Favorites:     env.Favorites,
		Catalog:       env.Catalog,
		Orders:        order.NewService(env.Orders, env.Catalog),
		Payments:      payment.NewProcessor(env.Orders, issuer),
		Gate:          download.NewGate(env.Grants, env.Catalog),
		WebhookSecret: env.WebhookSecret,
	})

	env.Server = httptest.NewServer(mux)
	env.URL = env.Server.URL
	t.Cleanup(env.Server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("building cookie jar: %v", err)
	}
	env.client = &http.Client{Jar: jar}

	return env
}

// Client returns the shared client. It keeps the session cookie across
// requests, so Login/Logout change who the subsequent calls act as.
func (env *TestEnv) Client() *http.Client {
	return env.client
}

func (env *TestEnv) Signup(t *testing.T, email, username, password string) user.User {
	t.Helper()

	body := map[string]string{"email": email, "username": username, "password": password}
	var usr user.User
	env.DoJSON(t, http.MethodPost, "/auth/signup", body, http.StatusCreated, &usr)
	return usr
}

func (env *TestEnv) Login(t *testing.T, email, password string) {
	t.Helper()

	body := map[string]string{"email": email, "password": password}
	env.DoJSON(t, http.MethodPost, "/auth/login", body, http.StatusOK, nil)
}

func (env *TestEnv) Logout(t *testing.T) {
	t.Helper()
	env.DoJSON(t, http.MethodPost, "/auth/logout", nil, http.StatusNoContent, nil)
}

// DoJSON sends body (nil for none) to path, requires wantStatus, and decodes
// the response into out when out is non-nil.
func (env *TestEnv) DoJSON(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling %s %s body: %v", method, path, err)
		}
		rd = bytes.NewReader(raw)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		t.Fatalf("building %s %s: %v", method, path, err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	w, err := env.client.Do(r)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer w.Body.Close()

	if w.StatusCode != wantStatus {
		raw, _ := io.ReadAll(w.Body)
		t.Fatalf("%s %s: status %s, want %d\nbody: %s", method, path, w.Status, wantStatus, raw)
	}

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
}

func itemsPayload(productIDs ...int64) map[string]any {
	items := make([]map[string]any, len(productIDs))
	for i, id := range productIDs {
		items[i] = map[string]any{"productId": id}
	}
	return map[string]any{"items": items}
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@cgmart.test", prefix, time.Now().UnixNano())
}
