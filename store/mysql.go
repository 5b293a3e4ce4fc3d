package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"safecircle/models"
)

const mysqlDuplicateEntry = 1062

type MySQL struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

func (s *MySQL) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var nickname sql.NullString
	var lat, lng sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, nickname, lat, lng, created_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Username, &nickname, &lat, &lng, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Nickname = nickname.String
	if lat.Valid && lng.Valid {
		u.Lat, u.Lng = &lat.Float64, &lng.Float64
	}
	return &u, nil
}

func (s *MySQL) UpdateUserLocation(ctx context.Context, id string, lat, lng float64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET lat = ?, lng = ?, updated_at = ? WHERE id = ?",
		lat, lng, time.Now(), id,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// an unchanged row reports zero affected rows
	_, err = s.GetUser(ctx, id)
	return err
}

func (s *MySQL) ListUserLocations(ctx context.Context, excludeID string) ([]models.UserLocation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, lat, lng FROM users WHERE id != ? AND lat IS NOT NULL AND lng IS NOT NULL",
		excludeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []models.UserLocation
	for rows.Next() {
		var l models.UserLocation
		if err := rows.Scan(&l.UserID, &l.Lat, &l.Lng); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (s *MySQL) CreateFriendRequest(ctx context.Context, f *models.Friendship) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO friendships (id, user_id, friend_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		f.ID, f.UserID, f.FriendID, f.Status, f.CreatedAt, f.UpdatedAt,
	)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return ErrAlreadyExists
	}
	return err
}

func (s *MySQL) SetFriendRequestStatus(ctx context.Context, fromID, toID, status string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE friendships SET status = ?, updated_at = ? WHERE user_id = ? AND friend_id = ? AND status = 'pending'",
		status, time.Now(), fromID, toID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func (s *MySQL) ListFriendships(ctx context.Context, userID, status string) ([]models.Friendship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, friend_id, status, created_at, updated_at
		FROM friendships
		WHERE (user_id = ? OR friend_id = ?) AND status = ?
		ORDER BY created_at
	`, userID, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []models.Friendship
	for rows.Next() {
		var f models.Friendship
		if err := rows.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		edges = append(edges, f)
	}
	return edges, rows.Err()
}

func (s *MySQL) DeleteFriendship(ctx context.Context, a, b string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM friendships WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
		a, b, b, a,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func (s *MySQL) CreateAlert(ctx context.Context, a *models.Alert) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO emergency_alerts (id, type, details, latitude, longitude, user_id, resolved, created_at) VALUES (?, ?, ?, ?, ?, ?, 0, ?)",
		a.ID, a.Type, a.Details, a.Lat, a.Lng, a.UserID, a.CreatedAt,
	)
	return err
}

// likeEscaper quotes the LIKE wildcards in user input.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

const alertColumns = "id, type, COALESCE(details, ''), latitude, longitude, user_id, resolved, created_at"

func scanAlert(row interface{ Scan(...any) error }) (*models.Alert, error) {
	var a models.Alert
	if err := row.Scan(&a.ID, &a.Type, &a.Details, &a.Lat, &a.Lng, &a.UserID, &a.Resolved, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *MySQL) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, err := scanAlert(s.db.QueryRowContext(ctx,
		"SELECT "+alertColumns+" FROM emergency_alerts WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *MySQL) ListAlerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	var where []string
	var args []any
	if filter.Resolved != nil {
		where = append(where, "resolved = ?")
		args = append(args, *filter.Resolved)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		where = append(where, "details LIKE ?")
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
	}

	query := "SELECT " + alertColumns + " FROM emergency_alerts"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *MySQL) ResolveAlertsForUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE emergency_alerts SET resolved = 1 WHERE user_id = ? AND resolved = 0",
		userID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *MySQL) ResolveAlert(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE emergency_alerts SET resolved = 1 WHERE id = ? AND resolved = 0",
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.GetAlert(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *MySQL) CreateRoom(ctx context.Context, room *models.EmergencyRoom, memberIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO emergency_rooms (room_id, alert_id, victim_id, closed, created_at) VALUES (?, ?, ?, 0, ?)",
		room.RoomID, room.AlertID, room.VictimID, room.CreatedAt,
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	for _, uid := range memberIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT IGNORE INTO emergency_room_members (room_id, user_id) VALUES (?, ?)",
			room.RoomID, uid,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

const roomColumns = "room_id, alert_id, victim_id, closed, created_at, closed_at"

func scanRoom(row *sql.Row) (*models.EmergencyRoom, error) {
	var r models.EmergencyRoom
	var closedAt sql.NullTime
	err := row.Scan(&r.RoomID, &r.AlertID, &r.VictimID, &r.Closed, &r.CreatedAt, &closedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		r.ClosedAt = &closedAt.Time
	}
	return &r, nil
}

func (s *MySQL) GetRoom(ctx context.Context, roomID string) (*models.EmergencyRoom, error) {
	return scanRoom(s.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM emergency_rooms WHERE room_id = ?", roomID))
}

func (s *MySQL) GetRoomByAlert(ctx context.Context, alertID string) (*models.EmergencyRoom, error) {
	return scanRoom(s.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM emergency_rooms WHERE alert_id = ?", alertID))
}

func (s *MySQL) ActiveRoomsForVictim(ctx context.Context, victimID string) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT r.room_id
		FROM emergency_rooms r
		JOIN emergency_alerts a ON a.id = r.alert_id
		WHERE a.user_id = ? AND a.resolved = 0
		ORDER BY r.created_at
	`, victimID)
}

func (s *MySQL) RoomMembers(ctx context.Context, roomID string) ([]string, error) {
	return s.queryIDs(ctx,
		"SELECT user_id FROM emergency_room_members WHERE room_id = ? ORDER BY user_id",
		roomID,
	)
}

func (s *MySQL) IsRoomMember(ctx context.Context, roomID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM emergency_room_members WHERE room_id = ? AND user_id = ?)",
		roomID, userID,
	).Scan(&exists)
	return exists, err
}

func (s *MySQL) CloseRoom(ctx context.Context, roomID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE emergency_rooms SET closed = 1, closed_at = ? WHERE room_id = ? AND closed = 0",
		time.Now(), roomID,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *MySQL) OpenRoomsForResolvedAlerts(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT r.room_id
		FROM emergency_rooms r
		JOIN emergency_alerts a ON a.id = r.alert_id
		WHERE a.resolved = 1 AND r.closed = 0
	`)
}

func (s *MySQL) AppendMessage(ctx context.Context, m *models.ChatMessage) error {
	var sender sql.NullString
	if m.SenderID != nil {
		sender = sql.NullString{String: *m.SenderID, Valid: true}
	}
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO emergency_messages (room_id, sender_id, body, sent_at) VALUES (?, ?, ?, ?)",
		m.RoomID, sender, m.Body, m.SentAt,
	)
	if err != nil {
		return err
	}
	m.ID, err = result.LastInsertId()
	return err
}

// AppendOpenRoomMessage selects the values from the room row so a concurrent
// close either lands before the insert, leaving no row to select, or after it.
func (s *MySQL) AppendOpenRoomMessage(ctx context.Context, m *models.ChatMessage) error {
	var sender sql.NullString
	if m.SenderID != nil {
		sender = sql.NullString{String: *m.SenderID, Valid: true}
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO emergency_messages (room_id, sender_id, body, sent_at)
		SELECT room_id, ?, ?, ? FROM emergency_rooms WHERE room_id = ? AND closed = 0`,
		sender, m.Body, m.SentAt, m.RoomID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomClosed
	}
	m.ID, err = result.LastInsertId()
	return err
}

func (s *MySQL) ListMessages(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, room_id, sender_id, body, sent_at FROM emergency_messages WHERE room_id = ? ORDER BY sent_at, id",
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var sender sql.NullString
		if err := rows.Scan(&m.ID, &m.RoomID, &sender, &m.Body, &m.SentAt); err != nil {
			return nil, err
		}
		if sender.Valid {
			m.SenderID = &sender.String
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *MySQL) FindService(ctx context.Context, companyName, serviceType string) (*models.Service, error) {
	var svc models.Service
	var phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, company_name, service_type, phone FROM services WHERE company_name = ? AND service_type = ?",
		companyName, serviceType,
	).Scan(&svc.ID, &svc.CompanyName, &svc.ServiceType, &phone)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	svc.Phone = phone.String
	return &svc, nil
}

func (s *MySQL) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
