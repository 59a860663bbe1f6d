package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

// ErrMenuChanged is returned when an order references items that were
// withdrawn from the menu after checkout started.
var ErrMenuChanged = errors.New("menu changed during checkout")

//go:embed schema.sql
var schema string

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the tables if they do not exist yet.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// Menu

func (m *MySQLAdapter) UpsertMenuItem(ctx context.Context, item domain.MenuItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, category, price, is_available)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), category = VALUES(category),
			price = VALUES(price), is_available = VALUES(is_available)`,
		item.ID, item.Name, item.Category, item.Price, item.IsAvailable,
	)
	if err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, is_available, created_at, updated_at
		FROM menu_items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.IsAvailable, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query menu item: %w", err)
	}
	return &item, nil
}

func (m *MySQLAdapter) GetMenuSnapshot(ctx context.Context, itemIDs []string) (domain.MenuSnapshot, error) {
	snapshot := make(domain.MenuSnapshot, len(itemIDs))
	if len(itemIDs) == 0 {
		return snapshot, nil
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT id, price, is_available FROM menu_items WHERE id IN (`+placeholders(len(itemIDs))+`)`,
		stringArgs(itemIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query menu snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry := domain.MenuEntry{Exists: true}
		if err := rows.Scan(&entry.ID, &entry.Price, &entry.IsAvailable); err != nil {
			return nil, fmt.Errorf("scan menu entry: %w", err)
		}
		snapshot[entry.ID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu snapshot: %w", err)
	}
	return snapshot, nil
}

// Orders

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, len(order.Lines))
	for i, line := range order.Lines {
		ids[i] = line.ItemID
	}

	// Lock the menu rows so an item cannot be withdrawn mid-order.
	var available int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM menu_items WHERE is_available = TRUE AND id IN (`+placeholders(len(ids))+`) FOR UPDATE`,
		stringArgs(ids)...,
	).Scan(&available)
	if err != nil {
		return fmt.Errorf("check menu: %w", err)
	}
	if available != len(ids) {
		return ErrMenuChanged
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.Total, order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, item_id, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?)`,
			order.ID, line.ItemID, line.Quantity, line.UnitPrice, line.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	return tx.Commit()
}

// Contact messages

const messageColumns = `id, user_id, name, email, subject, message, status, created_at, updated_at`

func scanMessage(scan func(dest ...any) error) (domain.ContactMessage, error) {
	var (
		msg    domain.ContactMessage
		userID sql.NullString
	)
	err := scan(&msg.ID, &userID, &msg.Name, &msg.Email, &msg.Subject, &msg.Message, &msg.Status, &msg.CreatedAt, &msg.UpdatedAt)
	msg.UserID = userID.String
	msg.Discussion = []domain.DiscussionEntry{}
	return msg, err
}

func (m *MySQLAdapter) ListMessages(ctx context.Context) ([]domain.ContactMessage, error) {
	return m.listMessages(ctx, `SELECT `+messageColumns+` FROM contact_messages ORDER BY created_at DESC`)
}

func (m *MySQLAdapter) ListMessagesByUser(ctx context.Context, userID string) ([]domain.ContactMessage, error) {
	return m.listMessages(ctx,
		`SELECT `+messageColumns+` FROM contact_messages WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (m *MySQLAdapter) listMessages(ctx context.Context, query string, args ...any) ([]domain.ContactMessage, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []domain.ContactMessage{}
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	if err := m.attachDiscussions(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (m *MySQLAdapter) GetMessage(ctx context.Context, id string) (*domain.ContactMessage, error) {
	msg, err := scanMessage(m.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM contact_messages WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}

	messages := []domain.ContactMessage{msg}
	if err := m.attachDiscussions(ctx, messages); err != nil {
		return nil, err
	}
	return &messages[0], nil
}

// attachDiscussions loads the entries of every message in one query, in
// insertion order.
func (m *MySQLAdapter) attachDiscussions(ctx context.Context, messages []domain.ContactMessage) error {
	if len(messages) == 0 {
		return nil
	}

	index := make(map[string]int, len(messages))
	ids := make([]string, len(messages))
	for i, msg := range messages {
		index[msg.ID] = i
		ids[i] = msg.ID
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT message_id, id, user_id, role, text, status, created_at
		FROM discussion_entries WHERE message_id IN (`+placeholders(len(ids))+`)
		ORDER BY seq`,
		stringArgs(ids)...,
	)
	if err != nil {
		return fmt.Errorf("query discussion: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			messageID string
			entry     domain.DiscussionEntry
		)
		if err := rows.Scan(&messageID, &entry.ID, &entry.UserID, &entry.Role, &entry.Text, &entry.Status, &entry.Date); err != nil {
			return fmt.Errorf("scan discussion entry: %w", err)
		}
		i := index[messageID]
		messages[i].Discussion = append(messages[i].Discussion, entry)
	}
	return rows.Err()
}

func (m *MySQLAdapter) CreateMessage(ctx context.Context, msg domain.ContactMessage) error {
	var userID sql.NullString
	if msg.UserID != "" {
		userID = sql.NullString{String: msg.UserID, Valid: true}
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO contact_messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, userID, msg.Name, msg.Email, msg.Subject, msg.Message, msg.Status, msg.CreatedAt, msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) AppendEntry(ctx context.Context, messageID string, entry domain.DiscussionEntry, status domain.MessageStatus) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current domain.MessageStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM contact_messages WHERE id = ? FOR UPDATE`, messageID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return port.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock message: %w", err)
	}
	if current == domain.MessageStatusClosed {
		return port.ErrMessageClosed
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE contact_messages SET status = ?, updated_at = ? WHERE id = ?`,
		status, entry.Date, messageID,
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO discussion_entries (id, message_id, user_id, role, text, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, messageID, entry.UserID, entry.Role, entry.Text, entry.Status, entry.Date,
	)
	if err != nil {
		return fmt.Errorf("insert discussion entry: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) MarkEntriesRead(ctx context.Context, messageID string, entryIDs ...string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	args := append([]any{domain.EntryStatusRead, messageID}, stringArgs(entryIDs)...)
	_, err := m.db.ExecContext(ctx,
		`UPDATE discussion_entries SET status = ? WHERE message_id = ? AND id IN (`+placeholders(len(entryIDs))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark entries read: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdateStatus(ctx context.Context, messageID string, status domain.MessageStatus) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE contact_messages SET status = ?, updated_at = NOW()
		WHERE id = ?`,
		status, messageID,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	// MySQL reports zero affected rows when nothing changed, so only a
	// missing row is treated as not found.
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}
	var exists bool
	err = m.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM contact_messages WHERE id = ?)`, messageID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check message: %w", err)
	}
	if !exists {
		return port.ErrNotFound
	}
	return nil
}
