package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/massagebook/libs/db"
	"github.com/md-rashed-zaman/massagebook/services/booking-service/internal/model"
)

// ActiveSlotConstraint is the partial unique index guarding active slots.
const ActiveSlotConstraint = "appointments_active_slot_uniq"

const selectColumns = `
	SELECT id::text, client_id, provider_id, service_id, appt_date::text, to_char(appt_time, 'HH24:MI'),
		status, notes, created_at, updated_at
	FROM appointments`

// PostgresStore keeps one row per appointment; the database enforces slot uniqueness.
type PostgresStore struct {
	conn db.Conn
}

func NewPostgresStore(conn db.Conn) *PostgresStore {
	return &PostgresStore{conn: conn}
}

func (s *PostgresStore) Insert(ctx context.Context, appt model.Appointment) error {
	return wrap("insert", insertRow(ctx, s.conn, appt))
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := lookup(scanAppointment(s.conn.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)))
	if err != nil {
		return model.Appointment{}, wrap("get", err)
	}
	return appt, nil
}

func (s *PostgresStore) FindByProvider(ctx context.Context, providerID, date string) ([]model.Appointment, error) {
	if date == "" {
		return s.list(ctx, "find by provider", selectColumns+`
		WHERE provider_id = $1
		ORDER BY appt_date ASC, appt_time ASC, created_at ASC`, providerID)
	}
	return s.list(ctx, "find by provider", selectColumns+`
		WHERE provider_id = $1 AND appt_date = $2::date
		ORDER BY appt_time ASC, created_at ASC`, providerID, date)
}

func (s *PostgresStore) FindByClient(ctx context.Context, clientID string) ([]model.Appointment, error) {
	return s.list(ctx, "find by client", selectColumns+`
		WHERE client_id = $1
		ORDER BY created_at DESC`, clientID)
}

func (s *PostgresStore) Update(ctx context.Context, id string, fn Mutator) (model.Appointment, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return model.Appointment{}, wrap("update", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := lookup(scanAppointment(tx.QueryRow(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id)))
	if err != nil {
		return model.Appointment{}, wrap("update", err)
	}
	if err := fn(&appt); err != nil {
		return model.Appointment{}, err
	}
	appt.ID = id

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET client_id = $2,
			provider_id = $3,
			service_id = $4,
			appt_date = $5::date,
			appt_time = $6::time,
			status = $7,
			notes = $8,
			updated_at = $9
		WHERE id = $1
	`, appt.ID, appt.ClientID, appt.ProviderID, appt.ServiceID, appt.Date, appt.Time, string(appt.Status), appt.Notes, appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, wrap("update", translate(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, wrap("update", translate(err))
	}
	return appt, nil
}

func (s *PostgresStore) All(ctx context.Context) ([]model.Appointment, error) {
	return s.list(ctx, "all", selectColumns+` ORDER BY created_at ASC`)
}

// ReplaceAll swaps the whole table contents in one transaction.
func (s *PostgresStore) ReplaceAll(ctx context.Context, appts []model.Appointment) error {
	if err := checkUnique(appts); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return ErrSlotTaken
		}
		return wrap("replace all", err)
	}
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return wrap("replace all", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM appointments`); err != nil {
		return wrap("replace all", err)
	}
	for _, appt := range appts {
		if err := insertRow(ctx, tx, appt); err != nil {
			return wrap("replace all", err)
		}
	}
	return wrap("replace all", tx.Commit(ctx))
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRow(ctx context.Context, ex execer, appt model.Appointment) error {
	_, err := ex.Exec(ctx, `
		INSERT INTO appointments
			(id, client_id, provider_id, service_id, appt_date, appt_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, $7, $8, $9, $10)
	`, appt.ID, appt.ClientID, appt.ProviderID, appt.ServiceID, appt.Date, appt.Time, string(appt.Status), appt.Notes,
		appt.CreatedAt, appt.UpdatedAt)
	return translate(err)
}

func (s *PostgresStore) list(ctx context.Context, op, query string, args ...any) ([]model.Appointment, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, wrap(op, rows.Err())
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.ClientID,
		&appt.ProviderID,
		&appt.ServiceID,
		&appt.Date,
		&appt.Time,
		&status,
		&appt.Notes,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	return appt, nil
}

// lookup treats an id the column cannot represent as an unknown id.
func lookup(appt model.Appointment, err error) (model.Appointment, error) {
	if db.IsInvalidTextRepresentation(err) {
		return model.Appointment{}, ErrNotFound
	}
	return appt, err
}

func translate(err error) error {
	if db.IsUniqueViolation(err, ActiveSlotConstraint) {
		return ErrSlotTaken
	}
	return err
}
