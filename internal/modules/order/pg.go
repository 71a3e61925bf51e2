// README: Order store backed by PostgreSQL via pgx.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"semas/internal/types"
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

const orderColumns = `id, customer_id, customer_name, service_type, status, status_version,
	scheduled_for, address, description, technician_id, rating, created_at`

func (s *PgStore) Create(ctx context.Context, o *Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(o.ID),
		string(o.CustomerID),
		o.CustomerName,
		o.ServiceType,
		string(o.Status),
		o.StatusVersion,
		o.Date,
		o.Address,
		o.Description,
		toStringPtr(o.TechnicianID),
		o.Rating,
		o.CreatedAt,
	)
	if err != nil {
		return err
	}
	for _, m := range o.Messages {
		if err := insertMessage(ctx, tx, o.ID, m); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PgStore) List(ctx context.Context, f Filter) ([]*Order, error) {
	var (
		where []string
		args  []any
	)
	if f.CustomerID != "" {
		args = append(args, string(f.CustomerID))
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.TechnicianID != "" {
		args = append(args, string(f.TechnicianID))
		where = append(where, fmt.Sprintf("technician_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY seq DESC`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PgStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, technicianID *types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $1,
			status_version = status_version + 1,
			technician_id = COALESCE($2, technician_id),
			accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to),
		toStringPtr(technicianID),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) SetRating(ctx context.Context, id types.ID, rating, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET rating = $1, status_version = status_version + 1
		WHERE id = $2 AND status = 'completed' AND rating IS NULL AND status_version = $3`,
		rating, string(id), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) AppendMessage(ctx context.Context, id types.ID, m Message) (Message, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Message{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Row lock serialises appends to one thread.
	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, string(id)).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	if err != nil {
		return Message{}, err
	}
	var last int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(sent_at_ms), 0) FROM order_messages WHERE order_id = $1`, string(id)).Scan(&last); err != nil {
		return Message{}, err
	}
	if m.Timestamp <= last {
		m.Timestamp = last + 1
	}
	if err := insertMessage(ctx, tx, id, m); err != nil {
		return Message{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *PgStore) AppendEvent(ctx context.Context, e *Event) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO order_state_events (order_id, from_status, to_status, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		string(e.OrderID),
		string(e.FromStatus),
		string(e.ToStatus),
		toStringPtr(e.ActorID),
		e.CreatedAt,
	).Scan(&e.ID)
}

func (s *PgStore) Events(ctx context.Context, id types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor_id, created_at
		FROM order_state_events
		WHERE order_id = $1
		ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var actor *string
		if err := rows.Scan(&e.ID, &e.OrderID, &e.FromStatus, &e.ToStatus, &actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorID = toIDPtr(actor)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) Ratings(ctx context.Context, serviceType string) ([]int, error) {
	rows, err := s.db.Query(ctx, `SELECT rating FROM orders WHERE service_type = $1 AND rating IS NOT NULL`, serviceType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgStore) loadMessages(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[types.ID]*Order, len(orders))
	for i, o := range orders {
		ids[i] = string(o.ID)
		o.Messages = []Message{}
		byID[o.ID] = o
	}
	rows, err := s.db.Query(ctx, `
		SELECT order_id, id, sender_id, body, sent_at_ms
		FROM order_messages
		WHERE order_id = ANY($1)
		ORDER BY sent_at_ms, seq`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID types.ID
		var m Message
		if err := rows.Scan(&orderID, &m.ID, &m.SenderID, &m.Text, &m.Timestamp); err != nil {
			return err
		}
		if o := byID[orderID]; o != nil {
			o.Messages = append(o.Messages, m)
		}
	}
	return rows.Err()
}

func insertMessage(ctx context.Context, tx pgx.Tx, orderID types.ID, m Message) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_messages (id, order_id, sender_id, body, sent_at_ms)
		VALUES ($1, $2, $3, $4, $5)`,
		string(m.ID), string(orderID), string(m.SenderID), m.Text, m.Timestamp,
	)
	return err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var technicianID *string
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &o.ServiceType, &o.Status, &o.StatusVersion,
		&o.Date, &o.Address, &o.Description, &technicianID, &o.Rating, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.TechnicianID = toIDPtr(technicianID)
	return &o, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v *string) *types.ID {
	if v == nil {
		return nil
	}
	id := types.ID(*v)
	return &id
}
