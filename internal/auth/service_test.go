package auth

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

type memoryUserRepo struct {
	mu     sync.Mutex
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User)}
}

func (r *memoryUserRepo) Insert(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return User{}, ErrEmailTaken
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *memoryUserRepo) Get(ctx context.Context, id int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) List(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return User{}, ErrNotFound
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func newTestAuthService(t *testing.T) (*Service, *memoryUserRepo, *recordingAudit) {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	repo := newMemoryUserRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, tokens, audit, "example.com")
	svc.cost = bcrypt.MinCost
	return svc, repo, audit
}

func aliceInput() CreateUserInput {
	return CreateUserInput{Name: "Alice Doe", Username: "alice", Password: "s3cret!", Role: "admin", RegisteredModules: []string{"purchasing", "inventory", "purchasing", " "}}
}

func TestRegisterDerivesEmailAndHashesPassword(t *testing.T) {
	svc, repo, audit := newTestAuthService(t)
	user, err := svc.Register(context.Background(), aliceInput())
	require.NoError(t, err)

	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, []string{"purchasing", "inventory"}, user.RegisteredModules)
	stored := repo.users[user.ID]
	require.NotEqual(t, "s3cret!", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret!")))
	require.Equal(t, []string{"USER_CREATE"}, audit.actions)
}

func TestRegisterRejectsExistingEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, err := svc.Register(context.Background(), aliceInput())
	require.NoError(t, err)

	dup := aliceInput()
	dup.Username = "ALICE"
	_, err = svc.Register(context.Background(), dup)
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestRegisterValidatesRequiredFields(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, err := svc.Register(context.Background(), CreateUserInput{Username: "bob"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "name")
	require.Contains(t, verr.Fields, "password")
}

func TestAuthenticateIssuesToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	created, err := svc.Register(context.Background(), aliceInput())
	require.NoError(t, err)

	user, token, err := svc.Authenticate(context.Background(), SignInInput{Username: "alice", Password: "s3cret!"})
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	claims, err := svc.tokens.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "1", claims.Subject)
	require.Equal(t, "alice", claims.Username)

	_, _, err = svc.Authenticate(context.Background(), SignInInput{Email: "alice@example.com", Password: "s3cret!"})
	require.NoError(t, err)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, err := svc.Register(context.Background(), aliceInput())
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), SignInInput{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Authenticate(context.Background(), SignInInput{Username: "nobody", Password: "s3cret!"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestUpdateUsernameRederivesEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()
	alice, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)
	bobInput := aliceInput()
	bobInput.Username = "bob"
	_, err = svc.Register(ctx, bobInput)
	require.NoError(t, err)

	newName := "alicia"
	updated, err := svc.Update(ctx, alice.ID, UpdateUserInput{Username: &newName})
	require.NoError(t, err)
	require.Equal(t, "alicia@example.com", updated.Email)

	taken := "bob"
	_, err = svc.Update(ctx, alice.ID, UpdateUserInput{Username: &taken})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Update(ctx, 99, UpdateUserInput{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceModulesAndResetPassword(t *testing.T) {
	svc, repo, audit := newTestAuthService(t)
	ctx := context.Background()
	alice, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	updated, err := svc.ReplaceModules(ctx, alice.ID, ModulesInput{RegisteredModules: []string{"banks"}})
	require.NoError(t, err)
	require.Equal(t, []string{"banks"}, updated.RegisteredModules)

	cleared, err := svc.ReplaceModules(ctx, alice.ID, ModulesInput{RegisteredModules: []string{}})
	require.NoError(t, err)
	require.Empty(t, cleared.RegisteredModules)

	require.NoError(t, svc.ResetPassword(ctx, alice.ID, ResetPasswordInput{Password: "n3w-pass"}))
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[alice.ID].PasswordHash), []byte("n3w-pass")))
	require.Contains(t, audit.actions, "USER_PASSWORD_RESET")

	require.ErrorIs(t, svc.ResetPassword(ctx, alice.ID, ResetPasswordInput{Password: "x"}), httpx.ErrValidation)
	require.ErrorIs(t, svc.ResetPassword(ctx, 42, ResetPasswordInput{Password: "long-enough"}), ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()
	alice, err := svc.Register(ctx, aliceInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice.ID))
	require.ErrorIs(t, svc.Delete(ctx, alice.ID), ErrNotFound)
}

func TestDeriveEmail(t *testing.T) {
	require.Equal(t, "jdoe@shop.test", DeriveEmail(" JDoe ", "Shop.test"))
}
