package auth

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is an account row. PasswordHash never leaves this package.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserStore is the persistence contract for accounts.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Insert(ctx context.Context, u User) error
}

// Service registers accounts and exchanges credentials for token pairs.
type Service struct {
	users   UserStore
	manager *Manager
	clock   func() time.Time
}

func NewService(users UserStore, manager *Manager) *Service {
	return &Service{users: users, manager: manager, clock: time.Now}
}

func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return User{}, errors.New("invalid email format")
	}
	if len(password) < 8 {
		return User{}, errors.New("password must be at least 8 characters")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login verifies credentials and issues a token pair. Lookup and compare
// failures collapse into ErrInvalidCredentials so responses never reveal
// which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return TokenPair{}, User{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return TokenPair{}, User{}, ErrInvalidCredentials
	}

	pair, err := s.manager.IssuePair(s.clock(), u.ID, u.Email)
	if err != nil {
		return TokenPair{}, User{}, err
	}
	return pair, u, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The user row
// is re-read so deleted accounts stop refreshing.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.manager.Verify(refreshToken, TokenTypeRefresh, s.clock())
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	return s.manager.IssuePair(s.clock(), u.ID, u.Email)
}

/* ===================== POSTGRES STORE ===================== */

// PostgresUserStore reads and writes the users table.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore { return &PostgresUserStore{db: db} }

func (r *PostgresUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email))
}

func (r *PostgresUserStore) FindByID(ctx context.Context, id string) (User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id))
}

func (r *PostgresUserStore) Insert(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	return err
}

func (r *PostgresUserStore) scanOne(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

/* ===================== MEMORY STORE ===================== */

// MemoryUserStore is an in-memory UserStore for tests.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]User)}
}

func (r *MemoryUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *MemoryUserStore) FindByID(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserStore) Insert(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}
