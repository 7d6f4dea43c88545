package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gymdash/internal/core"
	"gymdash/internal/store"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the database was brought up to.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func dateBound(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Key()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Members

const memberColumns = `id, name, email, phone, identification, membership_type,
	emergency_contact, emergency_phone, notes, is_active, join_date,
	last_check_in, total_check_ins, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (core.Member, error) {
	var (
		m                    core.Member
		plan, joinDate       string
		active               int
		lastCheckIn          sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Identification, &plan,
		&m.EmergencyContact, &m.EmergencyPhone, &m.Notes, &active, &joinDate,
		&lastCheckIn, &m.TotalCheckIns, &createdAt, &updatedAt)
	if err != nil {
		return core.Member{}, err
	}
	m.MembershipType = core.MembershipType(plan)
	m.IsActive = active != 0
	if m.JoinDate, err = core.ParseDate(joinDate); err != nil {
		return core.Member{}, fmt.Errorf("member %s join date: %w", m.ID, err)
	}
	if m.LastCheckIn, err = parseTimePtr(lastCheckIn); err != nil {
		return core.Member{}, fmt.Errorf("member %s last check-in: %w", m.ID, err)
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Member{}, fmt.Errorf("member %s created_at: %w", m.ID, err)
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Member{}, fmt.Errorf("member %s updated_at: %w", m.ID, err)
	}
	return m, nil
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Phone, m.Identification, string(m.MembershipType),
		m.EmergencyContact, m.EmergencyPhone, m.Notes, boolInt(m.IsActive), m.JoinDate.Key(),
		formatTimePtr(m.LastCheckIn), m.TotalCheckIns, formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	slog.InfoContext(ctx, "Member saved to SQLite", "member_id", m.ID)
	return nil
}

func (r *SQLiteRepository) UpdateMember(ctx context.Context, m core.Member) error {
	res, err := r.db.ExecContext(ctx, `UPDATE members SET
		name = ?, email = ?, phone = ?, identification = ?, membership_type = ?,
		emergency_contact = ?, emergency_phone = ?, notes = ?, is_active = ?,
		join_date = ?, last_check_in = ?, total_check_ins = ?, updated_at = ?
		WHERE id = ?`,
		m.Name, m.Email, m.Phone, m.Identification, string(m.MembershipType),
		m.EmergencyContact, m.EmergencyPhone, m.Notes, boolInt(m.IsActive),
		m.JoinDate.Key(), formatTimePtr(m.LastCheckIn), m.TotalCheckIns, formatTime(m.UpdatedAt),
		m.ID)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return requireRow(res, core.ErrMemberNotFound)
}

func (r *SQLiteRepository) DeleteMember(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return requireRow(res, core.ErrMemberNotFound)
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (core.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Member{}, core.ErrMemberNotFound
	}
	if err != nil {
		return core.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY join_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := make([]core.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecordCheckIn(ctx context.Context, id string, at time.Time) (core.Member, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE members
		SET last_check_in = ?, total_check_ins = total_check_ins + 1, updated_at = ?
		WHERE id = ?`, formatTime(at), formatTime(at), id)
	if err != nil {
		return core.Member{}, fmt.Errorf("record check-in: %w", err)
	}
	if err := requireRow(res, core.ErrMemberNotFound); err != nil {
		return core.Member{}, err
	}
	return r.GetMember(ctx, id)
}

// Payments

const paymentColumns = `id, member_id, amount_crc, due_date, status, method, plan, reference, confirmed_at, created_at`

func scanPayment(row rowScanner) (core.Payment, error) {
	var (
		p                          core.Payment
		due, status, plan, created string
		confirmedAt                sql.NullString
	)
	if err := row.Scan(&p.ID, &p.MemberID, &p.AmountCRC, &due, &status, &p.Method, &plan,
		&p.Reference, &confirmedAt, &created); err != nil {
		return core.Payment{}, err
	}
	var err error
	if p.DueDate, err = core.ParseDate(due); err != nil {
		return core.Payment{}, fmt.Errorf("payment %s due date: %w", p.ID, err)
	}
	p.Status = core.PaymentStatus(status)
	p.Plan = core.MembershipType(plan)
	if p.ConfirmedAt, err = parseTimePtr(confirmedAt); err != nil {
		return core.Payment{}, fmt.Errorf("payment %s confirmed_at: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return core.Payment{}, fmt.Errorf("payment %s created_at: %w", p.ID, err)
	}
	return p, nil
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.MemberID, p.AmountCRC, p.DueDate.Key(), string(p.Status), p.Method, string(p.Plan),
		p.Reference, formatTimePtr(p.ConfirmedAt), formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	slog.InfoContext(ctx, "Payment saved to SQLite",
		"payment_id", p.ID,
		"member_id", p.MemberID,
		"amount_crc", p.AmountCRC,
		"due_date", p.DueDate.Key())
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, core.ErrPaymentNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) HasPayment(ctx context.Context, memberID string, due core.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM payments WHERE member_id = ? AND due_date = ?`,
		memberID, due.Key()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check payment: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListDue(ctx context.Context, from, to core.Date) ([]core.PendingPayment, error) {
	lo, hi := dateBound(from), dateBound(to)
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.member_id, COALESCE(m.name, ''), p.amount_crc, p.due_date, p.status,
			(SELECT MAX(rm.requested_at) FROM payment_reminders rm WHERE rm.payment_id = p.id)
		FROM payments p
		LEFT JOIN members m ON m.id = p.member_id
		WHERE (? = '' OR p.due_date >= ?) AND (? = '' OR p.due_date <= ?)
		ORDER BY p.due_date, p.created_at, p.id`,
		lo, lo, hi, hi)
	if err != nil {
		return nil, fmt.Errorf("list due payments: %w", err)
	}
	defer rows.Close()

	out := make([]core.PendingPayment, 0)
	for rows.Next() {
		var (
			p            core.PendingPayment
			due, status  string
			lastReminder sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.MemberID, &p.MemberName, &p.AmountCRC, &due, &status, &lastReminder); err != nil {
			return nil, fmt.Errorf("scan due payment: %w", err)
		}
		if p.DueDate, err = core.ParseDate(due); err != nil {
			return nil, fmt.Errorf("payment %s due date: %w", p.ID, err)
		}
		p.Status = core.PaymentStatus(status)
		if p.LastReminderAt, err = parseTimePtr(lastReminder); err != nil {
			return nil, fmt.Errorf("payment %s reminder: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, from, to core.Date) ([]core.Payment, error) {
	lo, hi := dateBound(from), dateBound(to)
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE (? = '' OR due_date >= ?) AND (? = '' OR due_date <= ?)
		ORDER BY due_date, created_at, id`, lo, lo, hi, hi)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func collectPayments(rows *sql.Rows) ([]core.Payment, error) {
	out := make([]core.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ConfirmPayment(ctx context.Context, id string, at time.Time) (core.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Payment{}, fmt.Errorf("begin confirm: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, core.ErrPaymentNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("load payment: %w", err)
	}
	if p.Status == core.StatusConfirmed {
		return p, core.ErrAlreadyConfirmed
	}

	at = at.UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE payments SET status = ?, confirmed_at = ? WHERE id = ?`,
		string(core.StatusConfirmed), formatTime(at), id); err != nil {
		return core.Payment{}, fmt.Errorf("confirm payment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Payment{}, fmt.Errorf("commit confirm: %w", err)
	}

	p.Status = core.StatusConfirmed
	p.ConfirmedAt = &at
	slog.InfoContext(ctx, "Payment confirmed", "payment_id", id, "amount_crc", p.AmountCRC)
	return p, nil
}

// Reminders

func (r *SQLiteRepository) CreateReminder(ctx context.Context, rem core.Reminder) error {
	if _, err := r.GetPayment(ctx, rem.PaymentID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO payment_reminders (id, payment_id, requested_at, processed_at)
		VALUES (?, ?, ?, ?)`, rem.ID, rem.PaymentID, formatTime(rem.RequestedAt), formatTimePtr(rem.ProcessedAt))
	if err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkReminderProcessed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payment_reminders SET processed_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark reminder processed: %w", err)
	}
	return requireRow(res, core.ErrPaymentNotFound)
}

// Ledger export

func (r *SQLiteRepository) ListUnexported(ctx context.Context, limit int) ([]core.Payment, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments
		WHERE status = ? AND exported_at IS NULL
		ORDER BY confirmed_at, id LIMIT ?`, string(core.StatusConfirmed), limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *SQLiteRepository) IsExported(ctx context.Context, id string) (bool, error) {
	var exported sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT exported_at FROM payments WHERE id = ?`, id).Scan(&exported)
	if errors.Is(err, sql.ErrNoRows) {
		return false, core.ErrPaymentNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check exported: %w", err)
	}
	return exported.Valid, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id, ref string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE payments SET exported_at = ?, ledger_ref = ? WHERE id = ?`,
		formatTime(at), ref, id)
	if err != nil {
		return fmt.Errorf("mark payment exported: %w", err)
	}
	if err := requireRow(res, core.ErrPaymentNotFound); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Payment marked as exported", "payment_id", id, "ledger_ref", ref)
	return nil
}

// Admins

func (r *SQLiteRepository) GetAdminByEmail(ctx context.Context, email string) (core.Admin, error) {
	var (
		a        core.Admin
		disabled int
		created  string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, email, name, password_hash, disabled, created_at
		FROM admins WHERE email = ? COLLATE NOCASE`, strings.TrimSpace(email)).
		Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &disabled, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Admin{}, core.ErrAdminNotFound
	}
	if err != nil {
		return core.Admin{}, fmt.Errorf("get admin: %w", err)
	}
	a.Disabled = disabled != 0
	if a.CreatedAt, err = parseTime(created); err != nil {
		return core.Admin{}, fmt.Errorf("admin %s created_at: %w", a.ID, err)
	}
	return a, nil
}

func (r *SQLiteRepository) CreateAdmin(ctx context.Context, a core.Admin) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO admins (id, email, name, password_hash, disabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Name, a.PasswordHash, boolInt(a.Disabled), formatTime(a.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.ErrEmailTaken
		}
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
