package postgrest

import (
	"context"

	"github.com/supabase-community/supabase-go"

	"clusterize-backend/internal/domain"
	ports "clusterize-backend/internal/repository"
)

// UserRepository implements repository.UserRepository over PostgREST.
type UserRepository struct {
	repository
}

// NewUserRepository creates a user repository.
func NewUserRepository(client *supabase.Client) *UserRepository {
	return &UserRepository{repository{client: client}}
}

var _ ports.UserRepository = (*UserRepository)(nil)

// FindByAuthID returns the user mapped to the external identity, or nil.
func (r *UserRepository) FindByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	data, _, err := r.client.From(usersTable).
		Select("*", "", false).
		Eq("auth0_id", authID).
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "FindByAuthID", "user")
	}
	rows, err := decodeRows[domain.User]([]byte(data), "FindByAuthID")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// Create inserts a user. The email is only stored when known.
func (r *UserRepository) Create(ctx context.Context, authID, email string) (*domain.User, error) {
	payload := map[string]interface{}{"auth0_id": authID}
	if email != "" {
		payload["email"] = email
	}
	data, _, err := r.client.From(usersTable).
		Insert(payload, false, "", "representation", "").
		ExecuteString()
	if err != nil {
		return nil, queryFailed(err, "Create", "user")
	}
	rows, err := decodeRows[domain.User]([]byte(data), "Create")
	if err != nil {
		return nil, err
	}
	return firstOrNil(rows), nil
}

// Delete removes the user mapped to the external identity.
func (r *UserRepository) Delete(ctx context.Context, authID string) error {
	_, _, err := r.client.From(usersTable).
		Delete("", "").
		Eq("auth0_id", authID).
		ExecuteString()
	if err != nil {
		return queryFailed(err, "Delete", "user")
	}
	return nil
}
