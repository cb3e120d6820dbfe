package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/clubdesk/internal/model"
	"github.com/alfredjeanlab/clubdesk/internal/store"
)

// clubColumns is the column list used for SELECT statements on the clubs table.
const clubColumns = `id, name, city, description, owner_name, status, members,
	reject_reason, created_at`

// tournamentColumns selects a tournament with its club's name.
const tournamentColumns = `t.id, t.name, t.city, t.club_id, c.name, t.type,
	t.status, t.start_date, t.end_date, t.participants`

const userColumns = `id, username, full_name, email, role, city, rating, registered_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryListClubs(ctx context.Context, db executor) ([]model.Club, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+clubColumns+` FROM clubs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	defer rows.Close()

	clubs := []model.Club{}
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clubs: %w", err)
		}
		clubs = append(clubs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan clubs: %w", err)
	}
	return clubs, nil
}

func queryGetClub(ctx context.Context, db executor, id string, lock bool) (*model.Club, error) {
	q := `SELECT ` + clubColumns + ` FROM clubs WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	c, err := scanClub(db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func querySetClubStatus(ctx context.Context, db executor, id string, status model.Status, reason string) (*model.Club, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE clubs SET status = $2, reject_reason = $3
		WHERE id = $1
		RETURNING `+clubColumns,
		id, string(status), reason,
	)
	c, err := scanClub(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func queryUpdateClub(ctx context.Context, db executor, id string, u model.ClubUpdate) (*model.Club, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE clubs SET
			name = COALESCE($2, name),
			city = COALESCE($3, city),
			description = COALESCE($4, description)
		WHERE id = $1
		RETURNING `+clubColumns,
		id,
		nullStringPtr(u.Name),
		nullStringPtr(u.City),
		nullStringPtr(u.Description),
	)
	c, err := scanClub(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// deletable lists the tables queryDelete may address.
var deletable = map[string]bool{"clubs": true, "tournaments": true, "users": true}

func queryDelete(ctx context.Context, db executor, tableName, id string) error {
	if !deletable[tableName] {
		return fmt.Errorf("delete from %q: unknown table", tableName)
	}
	res, err := db.ExecContext(ctx, `DELETE FROM `+tableName+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func queryListTournaments(ctx context.Context, db executor, f store.TournamentFilter) ([]model.Tournament, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if f.Search != "" {
		p := nextArg()
		whereClauses = append(whereClauses,
			fmt.Sprintf("(t.name ILIKE '%%' || %s || '%%' OR t.city ILIKE '%%' || %s || '%%' OR c.name ILIKE '%%' || %s || '%%')", p, p, p))
		args = append(args, escapeLike(f.Search))
	}

	if f.Status != "" {
		whereClauses = append(whereClauses, "t.status = "+nextArg())
		args = append(args, f.Status)
	}

	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			placeholders[i] = nextArg()
			args = append(args, t)
		}
		whereClauses = append(whereClauses, "t.type IN ("+strings.Join(placeholders, ", ")+")")
	}

	if !f.StartFrom.IsZero() {
		whereClauses = append(whereClauses, "t.start_date >= "+nextArg())
		args = append(args, f.StartFrom)
	}
	if !f.StartBefore.IsZero() {
		whereClauses = append(whereClauses, "t.start_date <= "+nextArg())
		args = append(args, f.StartBefore)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + tournamentColumns +
		" FROM tournaments t LEFT JOIN clubs c ON c.id = t.club_id" + whereSQL +
		" ORDER BY " + parseSortClause(f.Sort) + ", t.id ASC"

	if f.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, f.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := []model.Tournament{}
	var total int
	for rows.Next() {
		t, n, err := scanTournamentWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tournaments: %w", err)
		}
		total = n
		tournaments = append(tournaments, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan tournaments: %w", err)
	}

	// An offset past the end returns no rows and so no window count.
	if len(tournaments) == 0 && f.Offset > 0 {
		countQuery := "SELECT COUNT(*) FROM tournaments t LEFT JOIN clubs c ON c.id = t.club_id" + whereSQL
		nFilter := len(args)
		if f.Limit > 0 {
			nFilter--
		}
		nFilter-- // offset
		if err := db.QueryRowContext(ctx, countQuery, args[:nFilter]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count tournaments: %w", err)
		}
	}

	return tournaments, total, nil
}

func queryListUsers(ctx context.Context, db executor) ([]model.User, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY registered_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan users: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

// tournamentSortColumns maps sort keys to SQL expressions. Text columns sort
// case-insensitively.
var tournamentSortColumns = map[string]string{
	model.KeyName:         "LOWER(t.name)",
	model.KeyCity:         "LOWER(t.city)",
	model.KeyClub:         "LOWER(c.name)",
	model.KeyType:         "t.type",
	model.KeyStatus:       "t.status",
	model.KeyStart:        "t.start_date",
	model.KeyEnd:          "t.end_date",
	model.KeyParticipants: "t.participants",
}

// parseSortClause converts a sort key ("-" prefix for descending) into an
// ORDER BY clause. Unknown keys fall back to the newest tournaments first.
func parseSortClause(sort string) string {
	const fallback = "t.start_date DESC"
	if sort == "" {
		return fallback
	}
	desc := strings.HasPrefix(sort, "-")
	col, ok := tournamentSortColumns[strings.TrimPrefix(sort, "-")]
	if !ok {
		return fallback
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

// escapeLike escapes the ILIKE wildcards in s so it matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
