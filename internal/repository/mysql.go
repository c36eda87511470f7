package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/crypto/bcrypt"

	"github.com/huriachi/collectiv/internal/entity"
	"github.com/huriachi/collectiv/migrations"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// Columns that carry a unique key and may be used with IsFieldUnique. The
// field name is never interpolated into SQL directly.
var uniqueColumns = map[string]string{
	"email":    "email",
	"username": "username",
}

type MySQLUserRepository struct {
	db *sql.DB
}

func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db}
}

func (r *MySQLUserRepository) GetAll(ctx context.Context) ([]*entity.User, error) {
	query := `SELECT id, first_name, surname, email, username, password FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user := &entity.User{}
		err := rows.Scan(&user.ID, &user.FirstName, &user.Surname, &user.Email, &user.Username, &user.PasswordHash)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, id int) (*entity.User, error) {
	user := &entity.User{}
	query := `SELECT id, first_name, surname, email, username, password FROM users WHERE id = ?`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.FirstName, &user.Surname, &user.Email, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *MySQLUserRepository) Create(ctx context.Context, user *entity.User, password string) (*entity.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO users (first_name, surname, email, username, password) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, user.FirstName, user.Surname, user.Email, user.Username, hash)
	if err != nil {
		return nil, wrapConstraint(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	user.ID = int(id)
	user.PasswordHash = hash
	return user, nil
}

func (r *MySQLUserRepository) Update(ctx context.Context, user *entity.User, password string) (*entity.User, error) {
	query := `UPDATE users SET first_name = ?, surname = ?, email = ?, username = ?`
	args := []interface{}{user.FirstName, user.Surname, user.Email, user.Username}

	if password != "" {
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		query += `, password = ?`
		args = append(args, hash)
		user.PasswordHash = hash
	}

	query += ` WHERE id = ?`
	args = append(args, user.ID)

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrapConstraint(err)
	}

	return user, nil
}

func (r *MySQLUserRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM users WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *MySQLUserRepository) IsFieldUnique(ctx context.Context, field, value, original string) (bool, error) {
	column, ok := uniqueColumns[field]
	if !ok {
		return false, fmt.Errorf("no uniqueness constraint on field %q", field)
	}

	var found string
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s = ?", column, column)
	err := r.db.QueryRowContext(ctx, query, value).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, err
	}

	return found == original, nil
}

func (r *MySQLUserRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE TABLE users`); err != nil {
		return err
	}
	return migrations.SeedUsers(ctx, r.db)
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func wrapConstraint(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%w: %v", ErrDuplicateField, err)
	}
	return err
}
