// Package sqlstore - store đối soát trên database/sql: PostgreSQL (lib/pq) hoặc SQLite (go-sqlite3).
// Bảng được tạo khi mở store; ApplyMerge chạy trong một sql.Tx.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"data_hub/internal/api/reconcile/models"
	"data_hub/internal/common"
	"data_hub/internal/logger"
)

// Store store SQL
type Store struct {
	db     *sql.DB
	driver string
}

// Open mở kết nối, kiểm tra ping và tạo schema
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, common.WithDetails(common.ErrConfiguration, "DATABASE_URL is empty")
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, common.WithDetails(common.ErrConfiguration, fmt.Sprintf("unsupported sql driver %q", driver))
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite chỉ cho một writer; ":memory:" mỗi connection là một database riêng
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, common.WithDetails(common.ErrConnection, fmt.Errorf("failed to ping database: %w", err))
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.GetAppLogger().WithField("driver", driver).Info("Database initialized successfully")
	return s, nil
}

// Close đóng kết nối
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

// Ping kiểm tra kết nối (health check)
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) q(query string) string { return rebind(s.driver, query) }

// execer phần chung của *sql.DB và *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// exists kiểm tra một id có trong bảng
func (s *Store) exists(ctx context.Context, ex execer, table, id string) (bool, error) {
	var one int
	err := ex.QueryRowContext(ctx, s.q("SELECT 1 FROM "+table+" WHERE id = ?"), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// updateIfEmpty ghi column khi đang trống; false nếu đã có giá trị, ErrNotFound nếu không có id
func (s *Store) updateIfEmpty(ctx context.Context, ex execer, table, column, id, value string) (bool, error) {
	res, err := ex.ExecContext(ctx,
		s.q("UPDATE "+table+" SET "+column+" = ? WHERE id = ? AND COALESCE("+column+", '') = ''"), value, id)
	if err != nil {
		return false, fmt.Errorf("update %s.%s: %w", table, column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	ok, err := s.exists(ctx, ex, table, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, common.WithDetails(common.ErrNotFound, id)
	}
	return false, nil
}

// EmployeeStore

func (s *Store) ListActiveEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, COALESCE(employee_code, ''), COALESCE(first_name, ''),
COALESCE(last_name, ''), COALESCE(nick_name, ''), COALESCE(facebook_name, ''), aliases, status
FROM employees WHERE LOWER(TRIM(status)) = 'active' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		var e models.Employee
		var aliases pq.StringArray
		if err := rows.Scan(&e.ID, &e.EmployeeCode, &e.FirstName, &e.LastName, &e.NickName, &e.FacebookName, &aliases, &e.Status); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		e.Aliases = []string(aliases)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateEmployeeAliases(ctx context.Context, employeeCode string, aliases []string) error {
	res, err := s.db.ExecContext(ctx, s.q("UPDATE employees SET aliases = ? WHERE employee_code = ?"),
		pq.StringArray(aliases), employeeCode)
	if err != nil {
		return fmt.Errorf("update aliases: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return common.WithDetails(common.ErrNotFound, employeeCode)
	}
	return nil
}

// MessageStore

const messageColumns = `m.id, m.conversation_id, COALESCE(m.from_id, ''), COALESCE(m.from_name, ''),
COALESCE(m.responder_id, ''), COALESCE(m.content, ''), m.created_at, COALESCE(c.participant_id, '')`

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	defer rows.Close()
	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.FromID, &m.FromName, &m.ResponderID, &m.Content, &m.CreatedAt, &m.ParticipantID); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListUnresolvedMessages(ctx context.Context) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+messageColumns+`
FROM messages m LEFT JOIN conversations c ON c.id = m.conversation_id
WHERE TRIM(COALESCE(m.from_name, '')) <> '' AND COALESCE(m.responder_id, '') = ''
ORDER BY m.created_at, m.id`)
	if err != nil {
		return nil, fmt.Errorf("query unresolved messages: %w", err)
	}
	return scanMessages(rows)
}

func (s *Store) ListMessagesForCustomer(ctx context.Context, customerID string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+messageColumns+`
FROM messages m JOIN conversations c ON c.id = m.conversation_id
WHERE c.customer_id = ?
ORDER BY m.created_at, m.id`), customerID)
	if err != nil {
		return nil, fmt.Errorf("query messages for customer: %w", err)
	}
	return scanMessages(rows)
}

func (s *Store) UpdateMessageResponder(ctx context.Context, messageID, employeeID string) (bool, error) {
	return s.updateIfEmpty(ctx, s.db, "messages", "responder_id", messageID, employeeID)
}

// ConversationStore

const conversationColumns = `id, customer_id, COALESCE(participant_id, ''), COALESCE(assigned_employee_id, ''),
COALESCE(assigned_agent, ''), last_message_at`

func scanConversations(rows *sql.Rows) ([]models.Conversation, error) {
	defer rows.Close()
	var out []models.Conversation
	for rows.Next() {
		var c models.Conversation
		var last sql.NullTime
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.ParticipantID, &c.AssignedEmployeeID, &c.AssignedAgent, &last); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if last.Valid {
			c.LastMessageAt = last.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListUnassignedConversations(ctx context.Context) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+conversationColumns+` FROM conversations
WHERE TRIM(COALESCE(assigned_agent, '')) <> '' AND COALESCE(assigned_employee_id, '') = ''
ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query unassigned conversations: %w", err)
	}
	return scanConversations(rows)
}

func (s *Store) ListConversationsForCustomer(ctx context.Context, customerID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+conversationColumns+` FROM conversations
WHERE customer_id = ? ORDER BY id`), customerID)
	if err != nil {
		return nil, fmt.Errorf("query conversations for customer: %w", err)
	}
	return scanConversations(rows)
}

func (s *Store) UpdateConversationAssignment(ctx context.Context, conversationID, employeeID string) (bool, error) {
	return s.updateIfEmpty(ctx, s.db, "conversations", "assigned_employee_id", conversationID, employeeID)
}

// OrderStore

func (s *Store) ListOrdersNeedingAttribution(ctx context.Context) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, COALESCE(order_code, ''), COALESCE(customer_id, ''), date,
COALESCE(total_amount, 0), COALESCE(closed_by_id, ''), COALESCE(conversation_id, '')
FROM orders WHERE COALESCE(closed_by_id, '') = '' OR COALESCE(conversation_id, '') = ''
ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.OrderCode, &o.CustomerID, &o.Date, &o.TotalAmount, &o.ClosedByID, &o.ConversationID); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) GetCustomer(ctx context.Context, customerID string) (models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, COALESCE(facebook_id, ''), COALESCE(name, '')
FROM customers WHERE id = ?`), customerID).Scan(&c.ID, &c.FacebookID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Customer{}, common.WithDetails(common.ErrNotFound, customerID)
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("query customer: %w", err)
	}
	return c, nil
}

// UpdateOrderAttribution hai câu UPDATE có điều kiện trong cùng transaction
func (s *Store) UpdateOrderAttribution(ctx context.Context, orderID, employeeID, conversationID string) (changed bool, err error) {
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, f := range []struct{ column, value string }{
			{"closed_by_id", employeeID},
			{"conversation_id", conversationID},
		} {
			if f.value == "" {
				continue
			}
			ok, err := s.updateIfEmpty(ctx, tx, "orders", f.column, orderID, f.value)
			if err != nil {
				return err
			}
			changed = changed || ok
		}
		if employeeID == "" && conversationID == "" {
			ok, err := s.exists(ctx, tx, "orders", orderID)
			if err != nil {
				return err
			}
			if !ok {
				return common.WithDetails(common.ErrNotFound, orderID)
			}
		}
		return nil
	})
	return changed, err
}

// ProfileStore

func (s *Store) ListCustomerProfiles(ctx context.Context) ([]models.CustomerProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document FROM customer_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []models.CustomerProfile
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		var p models.CustomerProfile
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", id, err)
		}
		p.ID = id
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ArchiveProfile(ctx context.Context, profileID, destination string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.archive(ctx, tx, profileID, destination)
	})
}

func (s *Store) PersistProfile(ctx context.Context, profile models.CustomerProfile) error {
	return s.persist(ctx, s.db, profile)
}

// ApplyMerge archive các loser và ghi canonical trong một transaction
func (s *Store) ApplyMerge(ctx context.Context, canonical models.CustomerProfile, loserIDs []string, destination string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range loserIDs {
			if err := s.archive(ctx, tx, id, destination); err != nil {
				return err
			}
		}
		return s.persist(ctx, tx, canonical)
	})
}

func (s *Store) archive(ctx context.Context, tx *sql.Tx, profileID, destination string) error {
	var doc []byte
	err := tx.QueryRowContext(ctx, s.q(`SELECT document FROM customer_profiles WHERE id = ?`), profileID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("archive profile %s: %w", profileID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read profile %s: %w", profileID, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO customer_profiles_archive (destination, id, document, archived_at)
VALUES (?, ?, ?, ?)`), destination, profileID, string(doc), time.Now().UTC()); err != nil {
		return fmt.Errorf("archive profile %s: %w", profileID, err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM customer_profiles WHERE id = ?`), profileID); err != nil {
		return fmt.Errorf("delete profile %s: %w", profileID, err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, ex execer, profile models.CustomerProfile) error {
	if profile.ID == "" {
		return common.WithDetails(common.ErrRequiredField, "profile id")
	}
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", profile.ID, err)
	}
	_, err = ex.ExecContext(ctx, s.q(`INSERT INTO customer_profiles (id, document) VALUES (?, ?)
ON CONFLICT (id) DO UPDATE SET document = excluded.document`), profile.ID, string(doc))
	if err != nil {
		return fmt.Errorf("persist profile %s: %w", profile.ID, err)
	}
	return nil
}

// ArchivedProfileIDs id các hồ sơ trong một batch archive
func (s *Store) ArchivedProfileIDs(ctx context.Context, destination string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id FROM customer_profiles_archive WHERE destination = ? ORDER BY id`), destination)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// inTx chạy fn trong transaction; rollback khi fn lỗi
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WithDetails(common.ErrTransaction, fmt.Errorf("begin: %w", err))
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.GetAppLogger().WithError(rbErr).Warn("Rollback transaction thất bại")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.WithDetails(common.ErrTransaction, fmt.Errorf("commit: %w", err))
	}
	return nil
}
