package storage

import (
	"context"
	"errors"
	"time"

	"github.com/CST438P3G6/slotbook/internal/model"
	"github.com/CST438P3G6/slotbook/internal/outbox"
	"github.com/CST438P3G6/slotbook/libs/db"
)

// Repository is the record-store adapter. Each mutation that the change feed
// reports is written together with its outbox event in one transaction.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) GetBusiness(ctx context.Context, id string) (model.Business, error) {
	var b model.Business
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, name, created_at
		FROM business
		WHERE id = $1
	`, id).Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt)
	if err != nil {
		return model.Business{}, wrap("get business", err)
	}
	return b, nil
}

func (r *Repository) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	var durationMs int64
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, cost::text, duration_ms, is_active, created_at
		FROM service
		WHERE id = $1
	`, id).Scan(&s.ID, &s.BusinessID, &s.Name, &s.Cost, &durationMs, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return model.Service{}, wrap("get service", err)
	}
	s.Duration = time.Duration(durationMs) * time.Millisecond
	return s, nil
}

func (r *Repository) CreateService(ctx context.Context, s model.Service) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO service (id, business_id, name, cost, duration_ms, is_active)
		VALUES ($1, $2, $3, $4::numeric, $5, $6)
	`, s.ID, s.BusinessID, s.Name, s.Cost, s.Duration.Milliseconds(), s.IsActive)
	return wrap("create service", err)
}

func (r *Repository) ListServices(ctx context.Context, businessID string, limit int) ([]model.Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, cost::text, duration_ms, is_active, created_at
		FROM service
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, wrap("list services", err)
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		var durationMs int64
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Cost, &durationMs, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, wrap("list services", err)
		}
		s.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, s)
	}
	return out, wrap("list services", rows.Err())
}

func (r *Repository) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	var a model.Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, service_id::text, business_id::text, user_id::text,
			start_time, end_time, status, cost::text, created_at
		FROM appointment
		WHERE id = $1
	`, id).Scan(&a.ID, &a.ServiceID, &a.BusinessID, &a.UserID, &a.StartTime, &a.EndTime, &a.Status, &a.Cost, &a.CreatedAt)
	if err != nil {
		return model.Appointment{}, wrap("get appointment", err)
	}
	return a, nil
}

// CreateAppointment inserts the appointment and its change-feed event in one
// transaction. An exclusion-constraint violation surfaces as ErrConflict.
func (r *Repository) CreateAppointment(ctx context.Context, a model.Appointment, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrap("create appointment", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO appointment (id, service_id, business_id, user_id, start_time, end_time, status, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric)
	`, a.ID, a.ServiceID, a.BusinessID, a.UserID, a.StartTime, a.EndTime, a.Status, a.Cost)
	if err != nil {
		return wrap("create appointment", err)
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return wrap("create appointment outbox", err)
	}
	return wrap("create appointment", tx.Commit(ctx))
}

func (r *Repository) UpdateAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrap("update appointment status", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE appointment
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return wrap("update appointment status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return wrap("update appointment outbox", err)
	}
	return wrap("update appointment status", tx.Commit(ctx))
}

// ListOccupying resolves business -> services -> appointments and returns
// appointments in occupying statuses whose [start_time, end_time) intersects
// [from, to), ascending by start time.
func (r *Repository) ListOccupying(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.service_id::text, a.business_id::text, a.user_id::text,
			a.start_time, a.end_time, a.status, a.cost::text, a.created_at
		FROM appointment a
		JOIN service s ON s.id = a.service_id
		WHERE s.business_id = $1
			AND a.status IN ('pending', 'confirmed', 'completed')
			AND a.start_time < $3
			AND a.end_time > $2
		ORDER BY a.start_time ASC
	`, businessID, from, to)
	if err != nil {
		return nil, wrap("list occupying", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *Repository) ListAppointmentsByUser(ctx context.Context, userID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, service_id::text, business_id::text, user_id::text,
			start_time, end_time, status, cost::text, created_at
		FROM appointment
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, wrap("list appointments by user", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *Repository) ListAppointmentsByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, service_id::text, business_id::text, user_id::text,
			start_time, end_time, status, cost::text, created_at
		FROM appointment
		WHERE business_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, wrap("list appointments by business", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *Repository) WeeklyHours(ctx context.Context, businessID string) ([]model.BusinessHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT business_id::text, day_of_week, open_minute, close_minute
		FROM business_hours
		WHERE business_id = $1
		ORDER BY day_of_week ASC
	`, businessID)
	if err != nil {
		return nil, wrap("weekly hours", err)
	}
	defer rows.Close()

	var out []model.BusinessHours
	for rows.Next() {
		var h model.BusinessHours
		var weekday int
		if err := rows.Scan(&h.BusinessID, &weekday, &h.OpenMinute, &h.CloseMinute); err != nil {
			return nil, wrap("weekly hours", err)
		}
		h.Weekday = time.Weekday(weekday)
		out = append(out, h)
	}
	return out, wrap("weekly hours", rows.Err())
}

// UpsertWeeklyHours writes weekly hours rows keyed on
// (business_id, day_of_week) together with their change-feed events in one
// transaction. A failure on any row rolls back the whole week, so a partial
// update is never visible.
func (r *Repository) UpsertWeeklyHours(ctx context.Context, rows []model.BusinessHours, evts []outbox.Event) error {
	if len(rows) != len(evts) {
		return wrap("upsert weekly hours", errors.New("rows and events mismatch"))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrap("upsert weekly hours", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, h := range rows {
		_, err = tx.Exec(ctx, `
			INSERT INTO business_hours (business_id, day_of_week, open_minute, close_minute)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (business_id, day_of_week) DO UPDATE
			SET open_minute = EXCLUDED.open_minute,
				close_minute = EXCLUDED.close_minute,
				updated_at = now()
		`, h.BusinessID, int(h.Weekday), h.OpenMinute, h.CloseMinute)
		if err != nil {
			return wrap("upsert weekly hours", err)
		}
		if err := r.outbox.Insert(ctx, tx, evts[i]); err != nil {
			return wrap("upsert weekly hours outbox", err)
		}
	}
	return wrap("upsert weekly hours", tx.Commit(ctx))
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAppointments(rows pgxRows) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.ServiceID, &a.BusinessID, &a.UserID,
			&a.StartTime, &a.EndTime, &a.Status, &a.Cost, &a.CreatedAt); err != nil {
			return nil, wrap("scan appointment", err)
		}
		out = append(out, a)
	}
	return out, wrap("scan appointments", rows.Err())
}
