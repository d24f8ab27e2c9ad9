package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

var (
	// ErrDuplicateUsername is returned by Create when the username is taken. It is how
	// a losing concurrent registration surfaces.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrUserNotFound is returned by the Find methods.
	ErrUserNotFound = errors.New("user not found")
)

// UserRepository stores accounts. Username uniqueness must be enforced by the store
// itself, not by a read before the write.
type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// PostgresUserRepository implements UserRepository with pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a repository over an existing pool.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create inserts a user.
func (r *PostgresUserRepository) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at`

	var u User
	err := r.pool.QueryRow(ctx, query, username, passwordHash).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return &u, nil
}

// FindByUsername looks a user up by exact username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

// FindByID looks a user up by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// userRecord is the gorm model of the users table.
type userRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:80;not null;uniqueIndex:users_username_key"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userRecord) TableName() string { return "users" }

func (u *userRecord) toUser() *User {
	return &User{ID: u.ID, Username: u.Username, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt}
}

// GormUserRepository implements UserRepository for the SQLite fallback.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates the users table if needed and returns the repository.
func NewGormUserRepository(db *gorm.DB) (*GormUserRepository, error) {
	if err := db.AutoMigrate(&userRecord{}); err != nil {
		return nil, err
	}
	return &GormUserRepository{db: db}, nil
}

// Create inserts a user.
func (r *GormUserRepository) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	rec := userRecord{Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isGormDuplicate(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return rec.toUser(), nil
}

// FindByUsername looks a user up by exact username.
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// FindByID looks a user up by id.
func (r *GormUserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormUserRepository) findOne(ctx context.Context, where string, arg any) (*User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where(where, arg).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

func isGormDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Fallback for driver builds without error translation.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
