package migrations

import (
	"context"
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AutoMigrateUsers creates the users table if it does not exist. The unique
// keys on email and username are the hard enforcement behind the advisory
// uniqueness checks in the validation layer.
func AutoMigrateUsers(retries int, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			surname VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			username VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			UNIQUE KEY users_email_unique (email),
			UNIQUE KEY users_username_unique (username)
		);
	`
	_, err := db.Exec(query)
	if err != nil {
		// Retry creating the table
		for i := 0; i < retries; i++ {
			time.Sleep(1 * time.Second)
			_, err = db.Exec(query)
			if err == nil {
				break
			}
		}
	}
	return err
}

type seedUser struct {
	firstName string
	surname   string
	email     string
	username  string
	password  string
}

// The fixed dataset the database reset reloads.
var seedUsers = []seedUser{
	{"John", "Doe", "john.doe@collectiv.dev", "jdoe", "password1"},
	{"Mary", "Major", "mary.major@collectiv.dev", "mmajor", "password1"},
	{"Richard", "Roe", "richard.roe@collectiv.dev", "rroe", "password1"},
}

// SeedUsers inserts the default dataset. Passwords are hashed at insert time
// so no hash material lives in the source tree.
func SeedUsers(ctx context.Context, db *sql.DB) error {
	query := `INSERT INTO users (first_name, surname, email, username, password) VALUES (?, ?, ?, ?, ?)`
	for _, u := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, query, u.firstName, u.surname, u.email, u.username, string(hash))
		if err != nil {
			return err
		}
	}
	return nil
}

// CountUsers reports how many user rows exist, used to decide whether the
// seed dataset should be loaded on startup.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
