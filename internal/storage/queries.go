package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// MonthRow mirrors the months table.
type MonthRow struct {
	UID           int64
	Mes           string
	InternetCents int64
	ExpensaCents  int64
	AguaCents     int64
	GasCents      int64
	LuzCents      int64
	TarjetaCents  int64
	AutoCents     int64
	CocheraCents  int64
	CatastroCents int64
	AdminCents    int64
	Version       int64
	SyncedVersion int64
	Deleted       bool
}

const monthColumns = `uid, mes, internet_cents, expensa_cents, agua_cents, gas_cents, luz_cents,
       tarjeta_cents, auto_cents, cochera_cents, catastro_cents, admin_cents,
       version, synced_version, deleted`

func scanMonth(scan func(...interface{}) error) (MonthRow, error) {
	var m MonthRow
	err := scan(
		&m.UID, &m.Mes,
		&m.InternetCents, &m.ExpensaCents, &m.AguaCents, &m.GasCents, &m.LuzCents,
		&m.TarjetaCents, &m.AutoCents, &m.CocheraCents, &m.CatastroCents, &m.AdminCents,
		&m.Version, &m.SyncedVersion, &m.Deleted,
	)
	return m, err
}

const listMonthsByUser = `-- name: ListMonthsByUser :many
SELECT ` + monthColumns + `
FROM months
WHERE uid = ? AND deleted = 0
ORDER BY mes`

func (q *Queries) ListMonthsByUser(ctx context.Context, uid int64) ([]MonthRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonthsByUser, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthRow
	for rows.Next() {
		m, err := scanMonth(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMonth = `-- name: GetMonth :one
SELECT ` + monthColumns + `
FROM months
WHERE uid = ? AND mes = ?`

// GetMonth returns the row even when it is a tombstone.
func (q *Queries) GetMonth(ctx context.Context, uid int64, mes string) (MonthRow, error) {
	row := q.db.QueryRowContext(ctx, getMonth, uid, mes)
	return scanMonth(row.Scan)
}

const upsertMonth = `-- name: UpsertMonth :one
INSERT INTO months (
    uid, mes, internet_cents, expensa_cents, agua_cents, gas_cents, luz_cents,
    tarjeta_cents, auto_cents, cochera_cents, catastro_cents, admin_cents
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (uid, mes) DO UPDATE SET
    internet_cents = excluded.internet_cents,
    expensa_cents = excluded.expensa_cents,
    agua_cents = excluded.agua_cents,
    gas_cents = excluded.gas_cents,
    luz_cents = excluded.luz_cents,
    tarjeta_cents = excluded.tarjeta_cents,
    auto_cents = excluded.auto_cents,
    cochera_cents = excluded.cochera_cents,
    catastro_cents = excluded.catastro_cents,
    admin_cents = excluded.admin_cents,
    version = months.version + 1,
    deleted = 0,
    updated_at = CURRENT_TIMESTAMP
RETURNING version`

type UpsertMonthParams struct {
	UID           int64
	Mes           string
	InternetCents int64
	ExpensaCents  int64
	AguaCents     int64
	GasCents      int64
	LuzCents      int64
	TarjetaCents  int64
	AutoCents     int64
	CocheraCents  int64
	CatastroCents int64
	AdminCents    int64
}

func (q *Queries) UpsertMonth(ctx context.Context, arg UpsertMonthParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertMonth,
		arg.UID, arg.Mes,
		arg.InternetCents, arg.ExpensaCents, arg.AguaCents, arg.GasCents, arg.LuzCents,
		arg.TarjetaCents, arg.AutoCents, arg.CocheraCents, arg.CatastroCents, arg.AdminCents,
	)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const softDeleteMonth = `-- name: SoftDeleteMonth :one
UPDATE months
SET deleted = 1, version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE uid = ? AND mes = ? AND deleted = 0
RETURNING version`

func (q *Queries) SoftDeleteMonth(ctx context.Context, uid int64, mes string) (int64, error) {
	row := q.db.QueryRowContext(ctx, softDeleteMonth, uid, mes)
	var version int64
	err := row.Scan(&version)
	return version, err
}

const getPendingSyncMonths = `-- name: GetPendingSyncMonths :many
SELECT uid, mes, version, deleted
FROM months
WHERE version > synced_version
ORDER BY updated_at
LIMIT ?`

type GetPendingSyncMonthsRow struct {
	UID     int64
	Mes     string
	Version int64
	Deleted bool
}

func (q *Queries) GetPendingSyncMonths(ctx context.Context, limit int64) ([]GetPendingSyncMonthsRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncMonths, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPendingSyncMonthsRow
	for rows.Next() {
		var i GetPendingSyncMonthsRow
		if err := rows.Scan(&i.UID, &i.Mes, &i.Version, &i.Deleted); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markMonthSynced = `-- name: MarkMonthSynced :exec
UPDATE months
SET synced_version = ?
WHERE uid = ? AND mes = ? AND synced_version < ?`

func (q *Queries) MarkMonthSynced(ctx context.Context, uid int64, mes string, version int64) error {
	_, err := q.db.ExecContext(ctx, markMonthSynced, version, uid, mes, version)
	return err
}

const purgeMonth = `-- name: PurgeMonth :exec
DELETE FROM months
WHERE uid = ? AND mes = ? AND deleted = 1 AND version = ?`

func (q *Queries) PurgeMonth(ctx context.Context, uid int64, mes string, version int64) error {
	_, err := q.db.ExecContext(ctx, purgeMonth, uid, mes, version)
	return err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, pass) VALUES (?, ?)
RETURNING id, email, pass, created_at`

// CreatedAt is scanned as text: the driver hands back either a time or the
// raw SQLite timestamp depending on the statement.
type UserRow struct {
	ID        int64
	Email     string
	Pass      string
	CreatedAt string
}

func (q *Queries) CreateUser(ctx context.Context, email, pass string) (UserRow, error) {
	row := q.db.QueryRowContext(ctx, createUser, email, pass)
	var i UserRow
	err := row.Scan(&i.ID, &i.Email, &i.Pass, &i.CreatedAt)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, pass, created_at FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i UserRow
	err := row.Scan(&i.ID, &i.Email, &i.Pass, &i.CreatedAt)
	return i, err
}

const getTemplate = `-- name: GetTemplate :one
SELECT data FROM templates WHERE uid = ?`

func (q *Queries) GetTemplate(ctx context.Context, uid int64) (string, error) {
	row := q.db.QueryRowContext(ctx, getTemplate, uid)
	var data string
	err := row.Scan(&data)
	return data, err
}

const upsertTemplate = `-- name: UpsertTemplate :exec
INSERT INTO templates (uid, data) VALUES (?, ?)
ON CONFLICT (uid) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertTemplate(ctx context.Context, uid int64, data string) error {
	_, err := q.db.ExecContext(ctx, upsertTemplate, uid, data)
	return err
}

const getBestScore = `-- name: GetBestScore :one
SELECT score FROM best_scores WHERE uid = ?`

func (q *Queries) GetBestScore(ctx context.Context, uid int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, getBestScore, uid)
	var score int64
	err := row.Scan(&score)
	return score, err
}

const raiseBestScore = `-- name: RaiseBestScore :one
INSERT INTO best_scores (uid, score) VALUES (?, ?)
ON CONFLICT (uid) DO UPDATE SET
    score = MAX(best_scores.score, excluded.score),
    updated_at = CURRENT_TIMESTAMP
RETURNING score`

func (q *Queries) RaiseBestScore(ctx context.Context, uid, score int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, raiseBestScore, uid, score)
	var best int64
	err := row.Scan(&best)
	return best, err
}
