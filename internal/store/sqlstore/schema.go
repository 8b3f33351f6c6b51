package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Tên driver database/sql
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// schema theo dialect. aliases lưu dạng mảng postgres (TEXT[]); với SQLite là text "{a,b}"
// cùng định dạng mà pq.StringArray đọc/ghi.
func schema(driver string) string {
	arrayType, docType, floatType := "TEXT[]", "JSONB", "DOUBLE PRECISION"
	if driver == DriverSQLite {
		arrayType, docType, floatType = "TEXT", "TEXT", "REAL"
	}
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS employees (
    id TEXT PRIMARY KEY,
    employee_code TEXT,
    first_name TEXT,
    last_name TEXT,
    nick_name TEXT,
    facebook_name TEXT,
    aliases %[1]s,
    status TEXT NOT NULL DEFAULT 'Active'
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_code ON employees(employee_code);

CREATE TABLE IF NOT EXISTS customers (
    id TEXT PRIMARY KEY,
    facebook_id TEXT,
    name TEXT
);

CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    participant_id TEXT,
    assigned_employee_id TEXT,
    assigned_agent TEXT,
    last_message_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conversations_customer ON conversations(customer_id);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL,
    from_id TEXT,
    from_name TEXT,
    responder_id TEXT,
    content TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    order_code TEXT,
    customer_id TEXT,
    date TIMESTAMP NOT NULL,
    total_amount %[3]s,
    closed_by_id TEXT,
    conversation_id TEXT
);

CREATE TABLE IF NOT EXISTS customer_profiles (
    id TEXT PRIMARY KEY,
    document %[2]s NOT NULL
);

CREATE TABLE IF NOT EXISTS customer_profiles_archive (
    destination TEXT NOT NULL,
    id TEXT NOT NULL,
    document %[2]s NOT NULL,
    archived_at TIMESTAMP NOT NULL,
    PRIMARY KEY (destination, id)
);
`, arrayType, docType, floatType)
}

// migrate tạo bảng nếu chưa có, chạy từng câu lệnh
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema(s.driver), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return nil
}

// rebind đổi placeholder "?" sang "$n" cho postgres
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
