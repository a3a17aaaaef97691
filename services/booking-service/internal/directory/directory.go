package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes int     `json:"durationMinutes"`
	Price           float64 `json:"price"`
	Description     string  `json:"description,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	City         string    `json:"city,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Provider is a user with role provider plus the ordered list of services it offers.
type Provider struct {
	User
	Services    []Service `json:"services"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"ratingCount"`
}

// Service looks up one of the provider's services by id.
func (p Provider) Service(id string) (Service, bool) {
	for _, s := range p.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// Directory resolves clients, providers and services. Lookups for unknown ids return ErrNotFound.
type Directory interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetProvider(ctx context.Context, id string) (Provider, error)
	ListProviders(ctx context.Context) ([]Provider, error)
	// ListClients returns every user with role client, ordered by name.
	ListClients(ctx context.Context) ([]User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// Create stores a new user; services are kept only for providers.
	Create(ctx context.Context, user User, services []Service) error
	UpdateServices(ctx context.Context, providerID string, services []Service) error
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isProvider(u User) bool {
	return u.Role == auth.RoleProvider
}
