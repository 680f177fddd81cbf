package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tazhibayda/tours-service/internal/domain"
	api "github.com/tazhibayda/tours-service/internal/http"
	"github.com/tazhibayda/tours-service/internal/query"
	"github.com/tazhibayda/tours-service/internal/queue"
	"github.com/tazhibayda/tours-service/internal/repo"
	"github.com/tazhibayda/tours-service/internal/security"
)

const testJWTSecret = "handlers-test-secret"

// fakeUserStore is an in-memory credential store honoring the projection
// contract: the password hash is blanked unless explicitly requested.
type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]*domain.User
	pingErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[primitive.ObjectID]*domain.User{}}
}

func (s *fakeUserStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *fakeUserStore) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.byID {
		if e.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) find(withPassword bool, pred func(*domain.User) bool) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if pred(u) {
			cp := *u
			if !withPassword {
				cp.Password = ""
			}
			return &cp
		}
	}
	return nil
}

func (s *fakeUserStore) FindUserByEmail(ctx context.Context, email string, withPassword bool) (*domain.User, error) {
	return s.find(withPassword, func(u *domain.User) bool { return u.Email == email }), nil
}

func (s *fakeUserStore) FindUserByID(ctx context.Context, id primitive.ObjectID, withPassword bool) (*domain.User, error) {
	return s.find(withPassword, func(u *domain.User) bool { return u.ID == id }), nil
}

func (s *fakeUserStore) FindUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	return s.find(false, func(u *domain.User) bool {
		return u.PasswordResetToken == tokenHash && u.PasswordResetExpires.After(now)
	}), nil
}

func (s *fakeUserStore) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return errors.New("no such user")
	}
	u.PasswordResetToken = tokenHash
	u.PasswordResetExpires = expires
	return nil
}

func (s *fakeUserStore) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = time.Time{}
	}
	return nil
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return errors.New("no such user")
	}
	u.Password = hash
	u.PasswordChangedAt = time.Now().UTC().Add(-time.Second)
	u.PasswordResetToken = ""
	u.PasswordResetExpires = time.Time{}
	return nil
}

func (s *fakeUserStore) ListUsers(ctx context.Context, f *query.Features) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.User{}
	for _, u := range s.byID {
		cp := *u
		cp.Password = ""
		out = append(out, cp)
	}
	return out, nil
}

// mutate gives tests direct access to a stored record, e.g. to age a token
// or force a password-change timestamp.
func (s *fakeUserStore) mutate(id primitive.ObjectID, fn func(*domain.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		fn(u)
	}
}

type fakeTourStore struct {
	mu           sync.Mutex
	byID         map[primitive.ObjectID]*domain.Tour
	lastFeatures *query.Features
}

func newFakeTourStore() *fakeTourStore {
	return &fakeTourStore{byID: map[primitive.ObjectID]*domain.Tour{}}
}

func (s *fakeTourStore) InsertTour(ctx context.Context, t *domain.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.byID {
		if e.Name == t.Name {
			return repo.ErrDuplicateTourName
		}
	}
	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now().UTC()
	cp := *t
	s.byID[t.ID] = &cp
	return nil
}

func (s *fakeTourStore) FindTourByID(ctx context.Context, id primitive.ObjectID) (*domain.Tour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeTourStore) FindTours(ctx context.Context, f *query.Features) ([]domain.Tour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFeatures = f
	out := []domain.Tour{}
	for _, t := range s.byID {
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeTourStore) UpdateTour(ctx context.Context, id primitive.ObjectID, set bson.M) (*domain.Tour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	for k, v := range set {
		switch k {
		case "name":
			if name, ok := v.(string); ok {
				t.Name = name
			}
		case "price":
			if p, ok := v.(float64); ok {
				t.Price = p
			}
		case "difficulty":
			if d, ok := v.(string); ok {
				t.Difficulty = d
			}
		}
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTourStore) DeleteTour(ctx context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) last() *sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return &m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testEnv struct {
	Users  *fakeUserStore
	Tours  *fakeTourStore
	Mail   *fakeMailer
	Router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newFakeUserStore()
	tours := newFakeTourStore()
	mailer := &fakeMailer{}

	h := api.NewHandler(users, tours, mailer, queue.NewNoop(), nil, testJWTSecret, 90, 0)
	return &testEnv{Users: users, Tours: tours, Mail: mailer, Router: api.NewRouter(h)}
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.Router.ServeHTTP(w, req)
	return w
}

// signup registers a user and returns the issued token plus the user id.
func (e *testEnv) signup(t *testing.T, name, email, password, role string) (string, primitive.ObjectID) {
	t.Helper()
	body := `{"name":"` + name + `","email":"` + email + `","password":"` + password +
		`","passwordConfirm":"` + password + `"`
	if role != "" {
		body += `,"role":"` + role + `"`
	}
	body += `}`
	w := e.do("POST", "/api/v1/users/signup", body, "")
	if w.Code != 201 {
		t.Fatalf("signup code=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		Data  struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := jsonUnmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("signup resp parse: %v body=%s", err, w.Body.String())
	}
	id, err := primitive.ObjectIDFromHex(resp.Data.User.ID)
	if err != nil {
		t.Fatalf("signup returned bad user id: %v", err)
	}
	return resp.Token, id
}

// staleToken signs a token for id with an issued-at in the past, as if it
// came from a session that predates a password change.
func staleToken(t *testing.T, id primitive.ObjectID, age time.Duration) string {
	t.Helper()
	iat := time.Now().Add(-age)
	c := security.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Hex(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(24 * time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("stale token: %v", err)
	}
	return tok
}

func jsonUnmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
