package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// Store bundles the repositories of one backend.
type Store struct {
	Users       UserRepository
	Submissions SubmissionRepository
	History     StatusHistoryRepository
}

// NewPostgresStore returns repositories backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return Store{
		Users:       NewUserRepository(pool),
		Submissions: NewSubmissionRepository(pool),
		History:     NewStatusHistoryRepository(pool),
	}
}
