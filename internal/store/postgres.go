package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/userhub-app/apiserver/types"
)

// PostgresDirectory is the durable UserDirectory implementation. Email
// uniqueness rides the table's unique index, not a check-then-insert, so
// concurrent registrations cannot race past it. Connectivity failures are
// mapped to ErrUnavailable so the router can fall back.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory constructs a directory over the given connection pool.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

const userColumns = `id, username, email, password_digest, avatar_key, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordDigest,
		&user.AvatarKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (d *PostgresDirectory) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, username, email, password_digest, avatar_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := d.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordDigest,
		user.AvatarKey,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, mapPostgresError(err)
	}
	return user, nil
}

func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(d.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, mapPostgresError(err)
	}
	return user, nil
}

func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(d.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, mapPostgresError(err)
	}
	return user, nil
}

func (d *PostgresDirectory) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			password_digest = $3,
			avatar_key = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := d.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.PasswordDigest,
		user.AvatarKey,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapPostgresError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, mapPostgresError(err)
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (d *PostgresDirectory) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := d.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapPostgresError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapPostgresError(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *PostgresDirectory) List(ctx context.Context) ([]types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapPostgresError(err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, mapPostgresError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPostgresError(err)
	}
	return users, nil
}

// mapPostgresError translates driver errors into the store's sentinel
// errors: unique violations on the email index become ErrDuplicateEmail,
// connection-class failures become ErrUnavailable.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return ErrDuplicateEmail
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "57":
			// Connection exception / operator intervention.
			return ErrUnavailable
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return ErrUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrUnavailable
	}
	return err
}
