package database

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"safecircle/config"
)

var DB *sql.DB

func Connect() error {
	var err error
	DB, err = sql.Open("mysql", config.Cfg.MysqlDSN)
	if err != nil {
		return err
	}

	if err = DB.Ping(); err != nil {
		return err
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)

	zap.L().Info("database connected")
	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
	}
}

// Tables lists the schema owned by the emergency core. users, friendships and
// services belong to the surrounding CRUD layer but are created here so a
// fresh database is usable.
var Tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          VARCHAR(36) PRIMARY KEY,
		username    VARCHAR(50) NOT NULL,
		nickname    VARCHAR(100),
		lat         DOUBLE NULL,
		lng         DOUBLE NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uk_username (username)
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		id          VARCHAR(36) PRIMARY KEY,
		user_id     VARCHAR(36) NOT NULL,
		friend_id   VARCHAR(36) NOT NULL,
		status      ENUM('pending', 'accepted', 'declined') DEFAULT 'pending',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uk_friendship (user_id, friend_id),
		INDEX idx_friend (friend_id)
	)`,
	`CREATE TABLE IF NOT EXISTS emergency_alerts (
		id          VARCHAR(36) PRIMARY KEY,
		type        VARCHAR(50) NOT NULL,
		details     TEXT,
		latitude    DOUBLE NOT NULL,
		longitude   DOUBLE NOT NULL,
		user_id     VARCHAR(36) NOT NULL,
		resolved    TINYINT(1) NOT NULL DEFAULT 0,
		created_at  DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_user_resolved (user_id, resolved)
	)`,
	`CREATE TABLE IF NOT EXISTS emergency_rooms (
		room_id     VARCHAR(36) PRIMARY KEY,
		alert_id    VARCHAR(36) NOT NULL,
		victim_id   VARCHAR(36) NOT NULL,
		closed      TINYINT(1) NOT NULL DEFAULT 0,
		created_at  DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6),
		closed_at   DATETIME(6) NULL,
		UNIQUE KEY uk_alert (alert_id),
		INDEX idx_victim (victim_id)
	)`,
	`CREATE TABLE IF NOT EXISTS emergency_room_members (
		room_id     VARCHAR(36) NOT NULL,
		user_id     VARCHAR(36) NOT NULL,
		PRIMARY KEY (room_id, user_id),
		INDEX idx_user (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS emergency_messages (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		room_id     VARCHAR(36) NOT NULL,
		sender_id   VARCHAR(36) NULL,
		body        TEXT NOT NULL,
		sent_at     DATETIME(6) NOT NULL,
		INDEX idx_room_time (room_id, sent_at, id)
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id           VARCHAR(36) PRIMARY KEY,
		company_name VARCHAR(100) NOT NULL,
		service_type ENUM('fire', 'medical') NOT NULL,
		phone        VARCHAR(30),
		UNIQUE KEY uk_company_type (company_name, service_type)
	)`,
}

func CreateTables() error {
	for _, table := range Tables {
		if _, err := DB.Exec(table); err != nil {
			return err
		}
	}

	zap.L().Info("database tables created")
	return nil
}
