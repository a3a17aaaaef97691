package directory

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
)

var (
	ErrInvalid            = errors.New("invalid registration")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const DefaultTokenTTL = 24 * time.Hour

type RegisterRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Phone    string    `json:"phone"`
	City     string    `json:"city"`
	Bio      string    `json:"bio"`
	Role     string    `json:"role"`
	Services []Service `json:"services"`
}

// Accounts registers users and issues HS256 access tokens.
type Accounts struct {
	dir    Directory
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewAccounts(dir Directory, secret string, ttl time.Duration) *Accounts {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Accounts{dir: dir, secret: secret, ttl: ttl, now: time.Now}
}

func (a *Accounts) Register(ctx context.Context, req RegisterRequest) (User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	req.Role = strings.TrimSpace(req.Role)

	switch {
	case req.Name == "":
		return User{}, fmt.Errorf("%w: name is required", ErrInvalid)
	case req.Email == "" || req.Password == "":
		return User{}, fmt.Errorf("%w: email and password required", ErrInvalid)
	case req.Role != auth.RoleClient && req.Role != auth.RoleProvider:
		return User{}, fmt.Errorf("%w: role must be client or provider", ErrInvalid)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return User{}, fmt.Errorf("%w: email is malformed", ErrInvalid)
	}

	var services []Service
	if req.Role == auth.RoleProvider {
		var err error
		if services, err = NewServices(req.Services); err != nil {
			return User{}, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        strings.TrimSpace(req.Phone),
		City:         strings.TrimSpace(req.City),
		Bio:          strings.TrimSpace(req.Bio),
		Role:         req.Role,
		CreatedAt:    a.now().UTC(),
	}
	if err := a.dir.Create(ctx, user, services); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login checks the password and returns a signed token for the user.
func (a *Accounts) Login(ctx context.Context, email, password string) (string, User, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return "", User{}, ErrInvalidCredentials
	}
	user, err := a.dir.FindByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return "", User{}, ErrInvalidCredentials
		}
		return "", User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", User{}, ErrInvalidCredentials
	}

	claims := auth.Claims{Sub: user.ID, Role: user.Role, Iss: auth.Issuer, Iat: a.now().Unix(), Exp: a.now().Add(a.ttl).Unix()}
	token, err := auth.SignHS256(claims, a.secret)
	if err != nil {
		return "", User{}, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

// UpdateServices replaces a provider's service list, assigning ids to new entries.
func (a *Accounts) UpdateServices(ctx context.Context, providerID string, services []Service) ([]Service, error) {
	list, err := NewServices(services)
	if err != nil {
		return nil, err
	}
	if err := a.dir.UpdateServices(ctx, providerID, list); err != nil {
		return nil, err
	}
	return list, nil
}

// NewServices validates a service list and fills in missing ids, keeping order.
func NewServices(in []Service) ([]Service, error) {
	out := make([]Service, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("%w: service name is required", ErrInvalid)
		}
		if s.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: service %q needs a positive duration", ErrInvalid, s.Name)
		}
		if s.Price < 0 {
			return nil, fmt.Errorf("%w: service %q has a negative price", ErrInvalid, s.Name)
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate service id %s", ErrInvalid, s.ID)
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
