package entity

// User represents one account row in the users table. The password hash is
// kept out of every serialized form.
type User struct {
	ID           int    `json:"id"`
	FirstName    string `json:"first_name"`
	Surname      string `json:"surname"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

/*
Mysql Schema:
CREATE DATABASE collectiv;
USE collectiv;

CREATE TABLE users (
	id INT AUTO_INCREMENT PRIMARY KEY,
	first_name VARCHAR(255) NOT NULL,
	surname VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	username VARCHAR(255) NOT NULL,
	password VARCHAR(255) NOT NULL,
	UNIQUE KEY users_email_unique (email),
	UNIQUE KEY users_username_unique (username)
);
*/
