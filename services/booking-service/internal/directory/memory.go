package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/md-rashed-zaman/massagebook/libs/auth"
)

// Memory is a process-local directory.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]User
	byEmail   map[string]string
	providers map[string]*Provider
	order     []string
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]User),
		byEmail:   make(map[string]string),
		providers: make(map[string]*Provider),
	}
}

func (m *Memory) GetUser(ctx context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetProvider(ctx context.Context, id string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[id]
	if !ok {
		return Provider{}, ErrNotFound
	}
	return clone(*p), nil
}

func (m *Memory) ListProviders(ctx context.Context) ([]Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Provider, 0, len(m.providers))
	for _, id := range m.order {
		if p, ok := m.providers[id]; ok {
			out = append(out, clone(*p))
		}
	}
	return out, nil
}

func (m *Memory) ListClients(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		if u.Role == auth.RoleClient {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) FindByEmail(ctx context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) Create(ctx context.Context, user User, services []Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeEmail(user.Email)
	if _, taken := m.byEmail[key]; taken {
		return ErrEmailTaken
	}
	m.users[user.ID] = user
	m.byEmail[key] = user.ID
	if isProvider(user) {
		m.providers[user.ID] = &Provider{User: user, Services: append([]Service(nil), services...)}
		m.order = append(m.order, user.ID)
	}
	return nil
}

func (m *Memory) UpdateServices(ctx context.Context, providerID string, services []Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[providerID]
	if !ok {
		return ErrNotFound
	}
	p.Services = append([]Service(nil), services...)
	return nil
}

// Seed installs the demo providers. Existing emails are left alone.
func (m *Memory) Seed(now time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range seedProviders(now, string(hash)) {
		if _, taken := m.byEmail[normalizeEmail(p.Email)]; taken {
			continue
		}
		m.users[p.ID] = p.User
		m.byEmail[normalizeEmail(p.Email)] = p.ID
		m.providers[p.ID] = &p
		m.order = append(m.order, p.ID)
	}
	return nil
}

func clone(p Provider) Provider {
	p.Services = append([]Service(nil), p.Services...)
	return p
}

const seedPassword = "123456"

func seedProviders(now time.Time, hash string) []Provider {
	return []Provider{
		{
			User: User{
				ID:           "mock_1",
				Name:         "Ana Silva",
				Email:        "ana@massagem.com",
				PasswordHash: hash,
				Phone:        "(11) 99999-1111",
				City:         "São Paulo",
				Bio:          "Certified massage therapist specialised in relaxation techniques and body therapies.",
				Role:         auth.RoleProvider,
				CreatedAt:    now,
			},
			Rating:      4.8,
			RatingCount: 127,
			Services: []Service{
				{ID: "1", Name: "Massagem Relaxante", DurationMinutes: 60, Price: 80, Description: "Gentle technique for stress relief"},
				{ID: "2", Name: "Massagem Terapêutica", DurationMinutes: 90, Price: 120, Description: "Treatment for muscle pain"},
				{ID: "3", Name: "Hot Stone", DurationMinutes: 75, Price: 150, Description: "Massage with heated stones"},
			},
		},
		{
			User: User{
				ID:           "mock_2",
				Name:         "Carla Santos",
				Email:        "carla@massagem.com",
				PasswordHash: hash,
				Phone:        "(11) 99999-2222",
				City:         "São Paulo",
				Bio:          "Sports massage and muscle recovery specialist.",
				Role:         auth.RoleProvider,
				CreatedAt:    now.Add(time.Millisecond),
			},
			Rating:      4.9,
			RatingCount: 89,
			Services: []Service{
				{ID: "1", Name: "Massagem Desportiva", DurationMinutes: 60, Price: 95, Description: "For athletes and active people"},
			},
		},
	}
}
