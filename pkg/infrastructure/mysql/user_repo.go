package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"canteen/pkg/domain/model"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	PhotoURL    string    `db:"photo_url"`
	IsStaff     bool      `db:"is_staff"`
	IsAdmin     bool      `db:"is_admin"`
	CreatedAt   time.Time `db:"created_at"`
}

const userColumns = `id, email, display_name, photo_url, is_staff, is_admin, created_at`

func (r *UserRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Email, user.DisplayName, user.PhotoURL,
		user.IsStaff, user.IsAdmin, user.CreatedAt,
	)
	return errors.Wrap(err, "insert user")
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET display_name = ?, photo_url = ?, is_staff = ?, is_admin = ?
		WHERE id = ?`,
		user.DisplayName, user.PhotoURL, user.IsStaff, user.IsAdmin, user.ID.String(),
	)
	if err != nil {
		return errors.Wrap(err, "update user")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update user rows affected")
	}
	if affected == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Find(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (*model.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}

	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "parse user id %q", row.ID)
	}
	return &model.User{
		ID:          id,
		Email:       row.Email,
		DisplayName: row.DisplayName,
		PhotoURL:    row.PhotoURL,
		IsStaff:     row.IsStaff,
		IsAdmin:     row.IsAdmin,
		CreatedAt:   row.CreatedAt,
	}, nil
}
