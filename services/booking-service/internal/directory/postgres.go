package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/massagebook/libs/auth"
	"github.com/md-rashed-zaman/massagebook/libs/db"
)

const emailConstraint = "directory_users_email_uniq"

const userColumns = `id, name, email, password_hash, phone, city, bio, role, created_at`

type Postgres struct {
	conn db.Conn
}

func NewPostgres(conn db.Conn) *Postgres {
	return &Postgres{conn: conn}
}

func (r *Postgres) GetUser(ctx context.Context, id string) (User, error) {
	u, _, _, err := scanUser(r.conn.QueryRow(ctx, `
		SELECT `+userColumns+`, rating::float8, rating_count
		FROM directory_users
		WHERE id = $1
	`, id))
	return u, err
}

func (r *Postgres) FindByEmail(ctx context.Context, email string) (User, error) {
	u, _, _, err := scanUser(r.conn.QueryRow(ctx, `
		SELECT `+userColumns+`, rating::float8, rating_count
		FROM directory_users
		WHERE lower(email) = $1
	`, normalizeEmail(email)))
	return u, err
}

func (r *Postgres) GetProvider(ctx context.Context, id string) (Provider, error) {
	u, rating, count, err := scanUser(r.conn.QueryRow(ctx, `
		SELECT `+userColumns+`, rating::float8, rating_count
		FROM directory_users
		WHERE id = $1 AND role = $2
	`, id, auth.RoleProvider))
	if err != nil {
		return Provider{}, err
	}
	services, err := r.listServices(ctx, `WHERE provider_id = $1`, id)
	if err != nil {
		return Provider{}, err
	}
	return Provider{User: u, Services: services[id], Rating: rating, RatingCount: count}, nil
}

func (r *Postgres) ListProviders(ctx context.Context) ([]Provider, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+userColumns+`, rating::float8, rating_count
		FROM directory_users
		WHERE role = $1
		ORDER BY created_at ASC
	`, auth.RoleProvider)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		u, rating, count, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Provider{User: u, Rating: rating, RatingCount: count})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	services, err := r.listServices(ctx, `WHERE provider_id IN (SELECT id FROM directory_users WHERE role = $1)`, auth.RoleProvider)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Services = services[out[i].ID]
	}
	return out, nil
}

func (r *Postgres) ListClients(ctx context.Context) ([]User, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+userColumns+`, rating::float8, rating_count
		FROM directory_users
		WHERE role = $1
		ORDER BY name ASC, id ASC
	`, auth.RoleClient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, _, _, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Postgres) Create(ctx context.Context, user User, services []Service) error {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO directory_users (id, name, email, password_hash, phone, city, bio, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.Phone, user.City, user.Bio, user.Role, user.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, emailConstraint) {
			return ErrEmailTaken
		}
		return err
	}
	if isProvider(user) {
		if err := insertServices(ctx, tx, user.ID, services); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Postgres) UpdateServices(ctx context.Context, providerID string, services []Service) error {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var one int
	err = tx.QueryRow(ctx, `
		SELECT 1 FROM directory_users WHERE id = $1 AND role = $2 FOR UPDATE
	`, providerID, auth.RoleProvider).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM directory_services WHERE provider_id = $1`, providerID); err != nil {
		return err
	}
	if err := insertServices(ctx, tx, providerID, services); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertServices(ctx context.Context, tx pgx.Tx, providerID string, services []Service) error {
	for i, s := range services {
		if _, err := tx.Exec(ctx, `
			INSERT INTO directory_services (provider_id, id, position, name, duration_minutes, price, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, providerID, s.ID, i, s.Name, s.DurationMinutes, s.Price, s.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *Postgres) listServices(ctx context.Context, where string, args ...any) (map[string][]Service, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT provider_id, id, name, duration_minutes, price::float8, description
		FROM directory_services
		`+where+`
		ORDER BY provider_id, position ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Service)
	for rows.Next() {
		var providerID string
		var s Service
		if err := rows.Scan(&providerID, &s.ID, &s.Name, &s.DurationMinutes, &s.Price, &s.Description); err != nil {
			return nil, err
		}
		out[providerID] = append(out[providerID], s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanUser(row pgx.Row) (User, float64, int, error) {
	var u User
	var rating float64
	var count int
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.City, &u.Bio, &u.Role, &u.CreatedAt, &rating, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, 0, 0, ErrNotFound
	}
	if err != nil {
		return User{}, 0, 0, err
	}
	return u, rating, count, nil
}
