package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/backoffice/internal/platform/httpx"
	"github.com/odyssey-erp/backoffice/internal/shared"
)

// Repository defines persistence operations for users.
type Repository interface {
	Insert(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, id int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps account management and authentication rules.
type Service struct {
	repo        Repository
	tokens      *TokenIssuer
	audit       AuditPort
	emailDomain string
	cost        int
	now         func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, audit AuditPort, emailDomain string) *Service {
	return &Service{repo: repo, tokens: tokens, audit: audit, emailDomain: emailDomain, cost: bcrypt.DefaultCost, now: time.Now}
}

// Register creates a user with a hashed password and derived email.
func (s *Service) Register(ctx context.Context, input CreateUserInput) (User, error) {
	if err := httpx.Validate(input); err != nil {
		return User{}, err
	}
	email := DeriveEmail(input.Username, s.emailDomain)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, err
	}
	now := s.now()
	user := User{
		Name:              input.Name,
		DisplayName:       input.DisplayName,
		Username:          strings.TrimSpace(input.Username),
		Email:             email,
		PasswordHash:      string(hash),
		Role:              input.Role,
		Zone:              input.Zone,
		Branch:            input.Branch,
		RegisteredModules: normaliseModules(input.RegisteredModules),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	created, err := s.repo.Insert(ctx, user)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, "USER_CREATE", created.ID, map[string]any{"email": created.Email})
	return created, nil
}

// Authenticate validates credentials and issues an access token.
func (s *Service) Authenticate(ctx context.Context, input SignInInput) (User, string, error) {
	if err := httpx.Validate(input); err != nil {
		return User{}, "", err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		email = DeriveEmail(input.Username, s.emailDomain)
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", shared.ErrInvalidCredentials
		}
		return User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return User{}, "", shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Update changes profile fields. A username change re-derives the email.
func (s *Service) Update(ctx context.Context, id int64, input UpdateUserInput) (User, error) {
	if err := httpx.Validate(input); err != nil {
		return User{}, err
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if input.Username != nil && strings.TrimSpace(*input.Username) != user.Username {
		email := DeriveEmail(*input.Username, s.emailDomain)
		if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing.ID != user.ID {
			return User{}, ErrEmailTaken
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return User{}, err
		}
		user.Username = strings.TrimSpace(*input.Username)
		user.Email = email
	}
	setString(&user.Name, input.Name)
	setString(&user.DisplayName, input.DisplayName)
	setString(&user.Role, input.Role)
	setString(&user.Zone, input.Zone)
	setString(&user.Branch, input.Branch)
	user.UpdatedAt = s.now()
	return s.repo.Update(ctx, user)
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "USER_DELETE", id, nil)
	return nil
}

// ReplaceModules overwrites the user's registered modules.
func (s *Service) ReplaceModules(ctx context.Context, id int64, input ModulesInput) (User, error) {
	if err := httpx.Validate(input); err != nil {
		return User{}, err
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	user.RegisteredModules = normaliseModules(input.RegisteredModules)
	user.UpdatedAt = s.now()
	return s.repo.Update(ctx, user)
}

// ResetPassword stores a new password hash. The cleartext is never persisted.
func (s *Service) ResetPassword(ctx context.Context, id int64, input ResetPasswordInput) error {
	if err := httpx.Validate(input); err != nil {
		return err
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now()
	if _, err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	s.recordAudit(ctx, "USER_PASSWORD_RESET", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: shared.ActorID(ctx), Action: action, Entity: "user", EntityID: strconv.FormatInt(entityID, 10), Meta: meta})
}

func normaliseModules(modules []string) []string {
	out := make([]string, 0, len(modules))
	seen := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
