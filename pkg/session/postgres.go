package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver

	"github.com/AdaptChat/harmony/pkg/wire"
)

// PostgresDirectory resolves tokens and memberships against the Harmony
// database. Tokens are stored hashed; the plaintext never touches disk.
type PostgresDirectory struct {
	db *sql.DB
}

// OpenPostgres dials the database at dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("directory: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("directory: ping postgres: %w", err)
	}
	return &PostgresDirectory{db: db}, nil
}

// NewPostgresDirectory wraps an existing database handle.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Close releases the underlying connection pool.
func (d *PostgresDirectory) Close() error {
	return d.db.Close()
}

// hashToken returns the stored digest for a plaintext token.
func hashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

func (d *PostgresDirectory) Authenticate(ctx context.Context, token string) (*wire.User, error) {
	hash := hashToken(token)

	var u wire.User
	var storedHash []byte
	err := d.db.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.flags, t.token_hash
		 FROM user_tokens t JOIN users u ON u.id = t.user_id
		 WHERE t.token_hash = $1 AND t.revoked_at IS NULL`,
		hash,
	).Scan(&u.ID, &u.Username, &u.Flags, &storedHash)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("directory: authenticate: %w", err)
	}

	// Constant-time comparison for the hash (the index lookup already
	// matched, this guards against collation surprises).
	if subtle.ConstantTimeCompare(storedHash, hash) != 1 {
		return nil, ErrInvalidToken
	}
	return &u, nil
}

func (d *PostgresDirectory) GuildsFor(ctx context.Context, userID uint64) ([]wire.Guild, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.owner_id
		 FROM guild_members m JOIN guilds g ON g.id = m.guild_id
		 WHERE m.user_id = $1 ORDER BY g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("directory: guilds for %d: %w", userID, err)
	}
	defer rows.Close()

	var guilds []wire.Guild
	for rows.Next() {
		var g wire.Guild
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID); err != nil {
			return nil, fmt.Errorf("directory: scan guild: %w", err)
		}
		guilds = append(guilds, g)
	}
	return guilds, rows.Err()
}

func (d *PostgresDirectory) ObserversOf(ctx context.Context, userID uint64) ([]uint64, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT DISTINCT other.user_id
		 FROM guild_members own
		 JOIN guild_members other ON other.guild_id = own.guild_id
		 WHERE own.user_id = $1 AND other.user_id <> $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("directory: observers of %d: %w", userID, err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("directory: scan observer: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
