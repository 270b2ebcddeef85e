package service

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"thermostab/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var testAuth = AuthConfig{SigningKey: "test-signing-key", TokenTTL: time.Hour}

// memOperators is an in-memory repository.Authorization.
type memOperators struct {
	byName    map[string]*models.Operator
	err       error
	countErr  error
	creates   int
	lastHash  string
	lookedFor []string
}

func newMemOperators() *memOperators {
	return &memOperators{byName: map[string]*models.Operator{}}
}

func (m *memOperators) Create(username, hash string) (int, error) {
	m.creates++
	m.lastHash = hash
	if m.err != nil {
		return 0, m.err
	}
	id := len(m.byName) + 1
	m.byName[username] = &models.Operator{ID: id, Username: username, PasswordHash: hash}
	return id, nil
}

func (m *memOperators) GetByUsername(username string) (*models.Operator, error) {
	m.lookedFor = append(m.lookedFor, username)
	if m.err != nil {
		return nil, m.err
	}
	return m.byName[username], nil
}

func (m *memOperators) Count() (int, error) {
	return len(m.byName), m.countErr
}

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	repo := newMemOperators()
	svc := NewAuthService(repo, testAuth)

	id, err := svc.SignUp("alice", "s3cr3t")
	if err != nil || id != 1 {
		t.Fatalf("SignUp: id=%d err=%v", id, err)
	}
	if repo.lastHash == "s3cr3t" || verifyPassword(repo.lastHash, "s3cr3t") != nil {
		t.Fatalf("stored hash must be a bcrypt hash of the password")
	}

	token, err := svc.GenerateToken("alice", "s3cr3t")
	if err != nil || token == "" {
		t.Fatalf("GenerateToken: %v", err)
	}
	got, err := svc.ParseToken(token)
	if err != nil || got != 1 {
		t.Fatalf("ParseToken: id=%d err=%v", got, err)
	}
}

func TestAuthService_SignUpRejects(t *testing.T) {
	cases := []struct {
		name, user, pass string
		repoErr          error
		wantCreates      int
	}{
		{"empty username", "  ", "pw", nil, 0},
		{"blank password", "bob", "   ", nil, 0},
		{"repository failure", "carl", "pass123", errors.New("db down"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemOperators()
			repo.err = tc.repoErr
			if _, err := NewAuthService(repo, testAuth).SignUp(tc.user, tc.pass); err == nil {
				t.Fatalf("expected error")
			}
			if repo.creates != tc.wantCreates {
				t.Fatalf("creates=%d want %d", repo.creates, tc.wantCreates)
			}
		})
	}
}

func TestAuthService_SignUpClosedAfterFirstOperator(t *testing.T) {
	repo := newMemOperators()
	svc := NewAuthService(repo, testAuth)

	if _, err := svc.SignUp("first", "pw"); err != nil {
		t.Fatalf("first operator must register: %v", err)
	}
	if _, err := svc.SignUp("second", "pw"); !errors.Is(err, ErrSignUpClosed) {
		t.Fatalf("expected ErrSignUpClosed, got %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("creates=%d want 1", repo.creates)
	}

	open := testAuth
	open.AllowSignUp = true
	if _, err := NewAuthService(repo, open).SignUp("second", "pw"); err != nil {
		t.Fatalf("open sign-up: %v", err)
	}

	repo = newMemOperators()
	repo.countErr = errors.New("db locked")
	if _, err := NewAuthService(repo, testAuth).SignUp("x", "pw"); err == nil || repo.creates != 0 {
		t.Fatalf("count failure must block sign-up: err=%v creates=%d", err, repo.creates)
	}
}

func TestAuthService_GenerateTokenRejects(t *testing.T) {
	repo := newMemOperators()
	svc := NewAuthService(repo, testAuth)
	if _, err := svc.SignUp("eve", "correct"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, err := svc.GenerateToken("ghost", "pw"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.GenerateToken("eve", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	repo.err = errors.New("query failed")
	if _, err := svc.GenerateToken("eve", "correct"); err == nil {
		t.Fatalf("expected repository error")
	}
}

func signed(t *testing.T, method jwt.SigningMethod, key any, claims claimsEdit) string {
	t.Helper()
	now := time.Now()
	c := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: 5,
	}
	if claims != nil {
		claims(&c.RegisteredClaims)
	}
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

// claimsEdit tweaks the registered claims of a forged token.
type claimsEdit func(*jwt.RegisteredClaims)

func TestAuthService_ParseTokenRejects(t *testing.T) {
	svc := NewAuthService(newMemOperators(), testAuth)
	key := []byte(testAuth.SigningKey)
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}

	if id, err := svc.ParseToken(signed(t, jwt.SigningMethodHS256, key, nil)); err != nil || id != 5 {
		t.Fatalf("well-formed token rejected: id=%d err=%v", id, err)
	}

	cases := map[string]string{
		"malformed":     "not-a-jwt",
		"other key":     signed(t, jwt.SigningMethodHS256, []byte("different-key"), nil),
		"rsa signature": signed(t, jwt.SigningMethodRS256, rsaKey, nil),
		"expired": signed(t, jwt.SigningMethodHS256, key, func(c *jwt.RegisteredClaims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		}),
		"no expiry": signed(t, jwt.SigningMethodHS256, key, func(c *jwt.RegisteredClaims) {
			c.ExpiresAt = nil
		}),
		"foreign issuer": signed(t, jwt.SigningMethodHS256, key, func(c *jwt.RegisteredClaims) {
			c.Issuer = "furnace"
		}),
	}
	for name, tok := range cases {
		if _, err := svc.ParseToken(tok); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestAuthService_RandomKeyWhenUnset(t *testing.T) {
	a := NewAuthService(newMemOperators(), AuthConfig{})
	b := NewAuthService(newMemOperators(), AuthConfig{})
	if a.tokenTTL != defaultTokenTTL {
		t.Fatalf("expected default ttl, got %v", a.tokenTTL)
	}

	token, err := a.issueToken(3)
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}
	if id, err := a.ParseToken(token); err != nil || id != 3 {
		t.Fatalf("same service must accept its token: id=%d err=%v", id, err)
	}
	if _, err := b.ParseToken(token); err == nil {
		t.Fatalf("another random key must reject the token")
	}
}
