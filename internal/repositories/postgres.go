package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/circlesapp/backend/internal/db"
	"github.com/circlesapp/backend/internal/models"
)

// opContext bounds a single storage call. Every repository method runs under
// this deadline so one slow round trip cannot hold a request forever.
func opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func timeoutOr(err error, wrapped error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return wrapped
}

const profileColumns = `
        p.profile_id, p.account_id, c.username, p.first_name, p.last_name,
        p.image_url, p.age, p.gender, p.bio, p.last_login, p.active_status,
        p.created_at, p.updated_at`

func scanProfile(row pgx.Row) (models.Profile, error) {
	var p models.Profile
	var lastLogin *time.Time
	err := row.Scan(&p.ID, &p.AccountID, &p.Username, &p.FirstName, &p.LastName,
		&p.ImageURL, &p.Age, &p.Gender, &p.Bio, &lastLogin, &p.ActiveStatus,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Profile{}, err
	}
	if lastLogin != nil {
		t := lastLogin.UTC()
		p.LastLogin = &t
	}
	return p, nil
}

// PostgresProfileRepository provides PostgreSQL-backed persistence for profiles.
type PostgresProfileRepository struct {
	pool    db.Pool
	timeout time.Duration
}

// NewPostgresProfileRepository constructs a profile repository backed by PostgreSQL.
func NewPostgresProfileRepository(pool db.Pool, timeout time.Duration) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool, timeout: timeout}
}

// List returns every profile in creation order.
func (r *PostgresProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+profileColumns+`
        FROM profiles p
        JOIN credentials c ON c.account_id = p.account_id
        ORDER BY p.created_at ASC
    `)
	if err != nil {
		return nil, timeoutOr(err, fmt.Errorf("query profiles: %w", err))
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, timeoutOr(err, fmt.Errorf("iterate profiles: %w", err))
	}

	return profiles, nil
}

// Find fetches a profile by its identifier.
func (r *PostgresProfileRepository) Find(ctx context.Context, profileID string) (models.Profile, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Profile{}, timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+profileColumns+`
        FROM profiles p
        JOIN credentials c ON c.account_id = p.account_id
        WHERE p.profile_id = $1
    `, profileID)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, timeoutOr(err, fmt.Errorf("select profile: %w", err))
	}

	return profile, nil
}

// Update replaces the mutable display attributes of an existing profile.
func (r *PostgresProfileRepository) Update(ctx context.Context, profile models.Profile) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE profiles
        SET first_name = $2, last_name = $3, image_url = $4, age = $5,
            gender = $6, bio = $7, active_status = $8, updated_at = $9
        WHERE profile_id = $1
    `, profile.ID, profile.FirstName, profile.LastName, profile.ImageURL,
		profile.Age, profile.Gender, profile.Bio, profile.ActiveStatus, profile.UpdatedAt)
	if err != nil {
		return timeoutOr(err, fmt.Errorf("update profile: %w", err))
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a profile. Credentials and connections referencing it are
// removed by the schema's cascade rules.
func (r *PostgresProfileRepository) Delete(ctx context.Context, profileID string) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM profiles
        WHERE profile_id = $1
    `, profileID)
	if err != nil {
		return timeoutOr(err, fmt.Errorf("delete profile: %w", err))
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// TouchLastLogin records a successful login on the profile.
func (r *PostgresProfileRepository) TouchLastLogin(ctx context.Context, profileID string) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE profiles
        SET last_login = $2
        WHERE profile_id = $1
    `, profileID, time.Now().UTC())
	if err != nil {
		return timeoutOr(err, fmt.Errorf("touch last login: %w", err))
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresCredentialRepository provides PostgreSQL-backed persistence for credentials.
type PostgresCredentialRepository struct {
	pool    db.Pool
	timeout time.Duration
}

// NewPostgresCredentialRepository constructs a credential repository backed by PostgreSQL.
func NewPostgresCredentialRepository(pool db.Pool, timeout time.Duration) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{pool: pool, timeout: timeout}
}

// CreateWithProfile persists the credential and profile rows inside a single
// retrying transaction, so a failure on either insert leaves no partial state.
func (r *PostgresCredentialRepository) CreateWithProfile(ctx context.Context, credential models.Credential, profile models.Profile) error {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            INSERT INTO credentials (account_id, username, password_hash, created_at)
            VALUES ($1, $2, $3, $4)
        `, credential.AccountID, credential.Username, credential.PasswordHash, credential.CreatedAt); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
            INSERT INTO profiles (profile_id, account_id, first_name, last_name, image_url,
                                  age, gender, bio, active_status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        `, profile.ID, profile.AccountID, profile.FirstName, profile.LastName, profile.ImageURL,
			profile.Age, profile.Gender, profile.Bio, profile.ActiveStatus, profile.CreatedAt, profile.UpdatedAt)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return timeoutOr(err, fmt.Errorf("insert credential and profile: %w", err))
	}

	return nil
}

// FindByUsername fetches a credential by its unique username.
func (r *PostgresCredentialRepository) FindByUsername(ctx context.Context, username string) (models.Credential, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Credential{}, timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT account_id, username, password_hash, created_at
        FROM credentials
        WHERE username = $1
    `, username)

	var credential models.Credential
	if err := row.Scan(&credential.AccountID, &credential.Username, &credential.PasswordHash, &credential.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Credential{}, ErrNotFound
		}
		return models.Credential{}, timeoutOr(err, fmt.Errorf("select credential: %w", err))
	}

	return credential, nil
}

// ProfileByAccount fetches the profile owned by the provided account.
func (r *PostgresCredentialRepository) ProfileByAccount(ctx context.Context, accountID string) (models.Profile, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Profile{}, timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+profileColumns+`
        FROM profiles p
        JOIN credentials c ON c.account_id = p.account_id
        WHERE p.account_id = $1
    `, accountID)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrNotFound
		}
		return models.Profile{}, timeoutOr(err, fmt.Errorf("select profile by account: %w", err))
	}

	return profile, nil
}

// PostgresConnectionRepository provides PostgreSQL-backed persistence for
// friend-request edges.
type PostgresConnectionRepository struct {
	pool    db.Pool
	timeout time.Duration
}

// NewPostgresConnectionRepository constructs a connection repository backed by PostgreSQL.
func NewPostgresConnectionRepository(pool db.Pool, timeout time.Duration) *PostgresConnectionRepository {
	return &PostgresConnectionRepository{pool: pool, timeout: timeout}
}

// Create inserts a new edge with status pending. The insert refuses a
// duplicate in either direction: the primary key catches (A, B) twice and the
// NOT EXISTS guard catches (B, A) while (A, B) is still on file.
func (r *PostgresConnectionRepository) Create(ctx context.Context, senderID, receiverID string) (models.Connection, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Connection{}, timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	now := time.Now().UTC()
	tag, err := conn.Exec(ctx, `
        INSERT INTO connections (sender_profile_id, receiver_profile_id, status, created_at)
        SELECT $1, $2, $3, $4
        WHERE NOT EXISTS (
            SELECT 1 FROM connections
            WHERE sender_profile_id = $2 AND receiver_profile_id = $1
        )
    `, senderID, receiverID, models.ConnectionPending, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return models.Connection{}, ErrConflict
			case "23503":
				return models.Connection{}, ErrNotFound
			}
		}
		return models.Connection{}, timeoutOr(err, fmt.Errorf("insert connection: %w", err))
	}

	if tag.RowsAffected() == 0 {
		return models.Connection{}, ErrConflict
	}

	return models.Connection{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.ConnectionPending,
		CreatedAt:  now,
	}, nil
}

// ListForReceiver returns edges where the profile is the receiver, newest
// first, optionally filtered by status.
func (r *PostgresConnectionRepository) ListForReceiver(ctx context.Context, receiverID, status string) ([]models.Connection, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, models.ErrInvalidStatus
	}

	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT sender_profile_id, receiver_profile_id, status, created_at, responded_at
        FROM connections
        WHERE receiver_profile_id = $1
          AND ($2 = '' OR status = $2)
        ORDER BY created_at DESC
    `, receiverID, status)
	if err != nil {
		return nil, timeoutOr(err, fmt.Errorf("query connections: %w", err))
	}
	defer rows.Close()

	var connections []models.Connection
	for rows.Next() {
		edge, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		connections = append(connections, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, timeoutOr(err, fmt.Errorf("iterate connections: %w", err))
	}

	return connections, nil
}

// Find fetches the edge from sender to receiver.
func (r *PostgresConnectionRepository) Find(ctx context.Context, receiverID, senderID string) (models.Connection, error) {
	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Connection{}, timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT sender_profile_id, receiver_profile_id, status, created_at, responded_at
        FROM connections
        WHERE receiver_profile_id = $1 AND sender_profile_id = $2
    `, receiverID, senderID)

	edge, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Connection{}, ErrNotFound
		}
		return models.Connection{}, timeoutOr(err, fmt.Errorf("select connection: %w", err))
	}

	return edge, nil
}

// UpdateStatus transitions a pending edge to accepted or rejected. The guard
// on the current status makes accepted and rejected terminal: a second
// transition attempt matches no rows and reports ErrAlreadyResponded.
func (r *PostgresConnectionRepository) UpdateStatus(ctx context.Context, receiverID, senderID, status string) error {
	if !models.Terminal(status) {
		return models.ErrInvalidStatus
	}

	ctx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return timeoutOr(err, fmt.Errorf("acquire connection: %w", err))
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE connections
        SET status = $3, responded_at = $4
        WHERE receiver_profile_id = $1 AND sender_profile_id = $2 AND status = $5
    `, receiverID, senderID, status, time.Now().UTC(), models.ConnectionPending)
	if err != nil {
		return timeoutOr(err, fmt.Errorf("update connection status: %w", err))
	}

	if tag.RowsAffected() == 0 {
		row := conn.QueryRow(ctx, `
            SELECT status FROM connections
            WHERE receiver_profile_id = $1 AND sender_profile_id = $2
        `, receiverID, senderID)

		var current string
		if err := row.Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return timeoutOr(err, fmt.Errorf("select connection status: %w", err))
		}
		return ErrAlreadyResponded
	}

	return nil
}

func scanConnection(row pgx.Row) (models.Connection, error) {
	var edge models.Connection
	var respondedAt *time.Time
	if err := row.Scan(&edge.SenderID, &edge.ReceiverID, &edge.Status, &edge.CreatedAt, &respondedAt); err != nil {
		return models.Connection{}, err
	}
	if respondedAt != nil {
		t := respondedAt.UTC()
		edge.RespondedAt = &t
	}
	return edge, nil
}

var _ ProfileRepository = (*PostgresProfileRepository)(nil)
var _ CredentialRepository = (*PostgresCredentialRepository)(nil)
var _ ConnectionRepository = (*PostgresConnectionRepository)(nil)
