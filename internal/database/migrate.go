package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		first_name    VARCHAR(100) NOT NULL,
		username      VARCHAR(100) NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_admin      TINYINT(1)   NOT NULL DEFAULT 0,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY ix_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS accommodations (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name       VARCHAR(200) NOT NULL,
		location   VARCHAR(200) NOT NULL,
		category   VARCHAR(50)  NOT NULL,
		image_url  VARCHAR(1024) NOT NULL,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY ix_acc_category (category),
		KEY ix_acc_location (location)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS accommodation_availability (
		accommodation_id BIGINT UNSIGNED NOT NULL,
		stay_date        DATE            NOT NULL,
		capacity         INT             NOT NULL,
		rooms_left       INT             NOT NULL,
		PRIMARY KEY (accommodation_id, stay_date),
		CONSTRAINT ck_rooms_left CHECK (rooms_left >= 0),
		CONSTRAINT ck_rooms_capacity CHECK (rooms_left <= capacity),
		CONSTRAINT fk_avail_acc FOREIGN KEY (accommodation_id) REFERENCES accommodations (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id          BIGINT UNSIGNED NOT NULL,
		accommodation_id BIGINT UNSIGNED NOT NULL,
		start_date       DATE            NOT NULL,
		days             INT             NOT NULL,
		adults           INT             NOT NULL,
		kids             INT             NOT NULL DEFAULT 0,
		rooms            INT             NOT NULL,
		status           ENUM('confirmed','pending','canceled') NOT NULL DEFAULT 'confirmed',
		created_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY ix_bookings_user (user_id),
		KEY ix_bookings_acc_status (accommodation_id, status),
		CONSTRAINT fk_booking_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
		CONSTRAINT fk_booking_acc FOREIGN KEY (accommodation_id) REFERENCES accommodations (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
