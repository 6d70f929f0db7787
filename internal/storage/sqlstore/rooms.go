package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bluff/internal/domain"
	"bluff/internal/ports"
)

var _ ports.RoomStore = (*Store)(nil)

// CreateRoom inserts a room with its seats, cards and moves.
func (s *Store) CreateRoom(ctx context.Context, room *domain.Room) error {
	if room == nil || room.ID == "" {
		return errors.New("room id is required")
	}
	rules, err := encodeJSON(room.Rules)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO rooms (
			id, code, status, created_by, host_user_id, rules, seed, version,
			pending_play_id, winner_seat_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		room.ID, room.Code, string(room.Status), room.CreatedBy, room.HostUserID, rules,
		room.Seed, room.Version, room.PendingPlayID, room.WinnerSeatID,
		toUnixNano(room.CreatedAt), toUnixNano(room.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrCodeTaken
		}
		return fmt.Errorf("insert room: %w", err)
	}
	if err := s.writeChildren(ctx, tx, room, 0); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit room: %w", err)
	}
	return nil
}

// SaveRoom writes room when the stored version equals expectedVersion. The
// row is locked for the duration of the write on PostgreSQL; SQLite runs on a
// single connection.
func (s *Store) SaveRoom(ctx context.Context, room *domain.Room, expectedVersion int64) error {
	rules, err := encodeJSON(room.Rules)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	lock := `SELECT version FROM rooms WHERE id = ?`
	if s.driver == DriverPostgres {
		lock += ` FOR UPDATE`
	}
	var stored int64
	if err := tx.QueryRowContext(ctx, s.rebind(lock), room.ID).Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.ErrRoomNotFound
		}
		return fmt.Errorf("lock room: %w", err)
	}
	if stored != expectedVersion {
		return ports.ErrVersionConflict
	}

	_, err = tx.ExecContext(ctx, s.rebind(`UPDATE rooms SET
			status = ?, host_user_id = ?, rules = ?, seed = ?, version = ?,
			pending_play_id = ?, winner_seat_id = ?, updated_at = ?
		WHERE id = ?`),
		string(room.Status), room.HostUserID, rules, room.Seed, room.Version,
		room.PendingPlayID, room.WinnerSeatID, toUnixNano(room.UpdatedAt), room.ID,
	)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}

	for _, stmt := range []string{
		`DELETE FROM seats WHERE room_id = ?`,
		`DELETE FROM cards WHERE room_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.rebind(stmt), room.ID); err != nil {
			return fmt.Errorf("clear room rows: %w", err)
		}
	}

	var lastSeq int64
	if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COALESCE(MAX(seq), 0) FROM moves WHERE room_id = ?`), room.ID).Scan(&lastSeq); err != nil {
		return fmt.Errorf("read move log tail: %w", err)
	}
	if err := s.writeChildren(ctx, tx, room, lastSeq); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit room: %w", err)
	}
	return nil
}

// writeChildren inserts seats and cards, and the moves after afterSeq. The
// move log is append-only so earlier moves are never rewritten.
func (s *Store) writeChildren(ctx context.Context, tx *sql.Tx, room *domain.Room, afterSeq int64) error {
	for _, seat := range room.Seats {
		_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO seats (
				id, room_id, user_id, display_name, seat_index, has_turn, eliminated, joined_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			seat.ID, room.ID, seat.UserID, seat.DisplayName, seat.Index,
			seat.HasTurn, seat.Eliminated, toUnixNano(seat.JoinedAt),
		)
		if err != nil {
			return fmt.Errorf("insert seat: %w", err)
		}
	}

	for _, c := range room.Cards {
		_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO cards (
				room_id, id, owner_seat_id, card_rank, card_suit, face_up, in_play_zone
			) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			room.ID, c.ID, c.OwnerSeatID, string(c.Rank), string(c.Suit), c.FaceUp, c.InPlayZone,
		)
		if err != nil {
			return fmt.Errorf("insert card: %w", err)
		}
	}

	for _, m := range room.Moves {
		if m.Seq <= afterSeq {
			continue
		}
		cardIDs, err := encodeJSON(m.CardIDs)
		if err != nil {
			return err
		}
		revealed, err := encodeJSON(m.Revealed)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO moves (
				room_id, id, seq, kind, actor_seat_id, card_ids, claimed_rank,
				result, target_move_id, revealed, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			room.ID, m.ID, m.Seq, string(m.Kind), m.ActorSeatID, cardIDs, string(m.ClaimedRank),
			string(m.Result), m.TargetMoveID, revealed, toUnixNano(m.Timestamp),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ports.ErrVersionConflict
			}
			return fmt.Errorf("insert move: %w", err)
		}
	}
	return nil
}

// LoadRoom reads a room with its seats, cards and full move log.
func (s *Store) LoadRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room := &domain.Room{}
	var (
		status, rules        string
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT
			id, code, status, created_by, host_user_id, rules, seed, version,
			pending_play_id, winner_seat_id, created_at, updated_at
		FROM rooms WHERE id = ?`), roomID).Scan(
		&room.ID, &room.Code, &status, &room.CreatedBy, &room.HostUserID, &rules,
		&room.Seed, &room.Version, &room.PendingPlayID, &room.WinnerSeatID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrRoomNotFound
		}
		return nil, fmt.Errorf("select room: %w", err)
	}
	room.Status = domain.Status(status)
	room.CreatedAt = fromUnixNano(createdAt)
	room.UpdatedAt = fromUnixNano(updatedAt)
	if err := decodeJSON(rules, &room.Rules); err != nil {
		return nil, err
	}

	if room.Seats, err = s.loadSeats(ctx, roomID); err != nil {
		return nil, err
	}
	if room.Cards, err = s.loadCards(ctx, roomID); err != nil {
		return nil, err
	}
	if room.Moves, err = s.loadMoves(ctx, roomID); err != nil {
		return nil, err
	}
	return room, nil
}

// FindRoomByCode resolves a join code.
func (s *Store) FindRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	var roomID string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM rooms WHERE code = ?`), code).Scan(&roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrRoomNotFound
		}
		return nil, fmt.Errorf("select room by code: %w", err)
	}
	return s.LoadRoom(ctx, roomID)
}

// DeleteRoom removes a room: cards, moves, seats, then the room row.
// Deleting a missing room is not an error.
func (s *Store) DeleteRoom(ctx context.Context, roomID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM cards WHERE room_id = ?`,
		`DELETE FROM moves WHERE room_id = ?`,
		`DELETE FROM seats WHERE room_id = ?`,
		`DELETE FROM rooms WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.rebind(stmt), roomID); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *Store) loadSeats(ctx context.Context, roomID string) ([]*domain.Seat, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
			id, user_id, display_name, seat_index, has_turn, eliminated, joined_at
		FROM seats WHERE room_id = ? ORDER BY seat_index`), roomID)
	if err != nil {
		return nil, fmt.Errorf("select seats: %w", err)
	}
	defer rows.Close()

	var seats []*domain.Seat
	for rows.Next() {
		seat := &domain.Seat{RoomID: roomID}
		var joinedAt int64
		if err := rows.Scan(&seat.ID, &seat.UserID, &seat.DisplayName, &seat.Index, &seat.HasTurn, &seat.Eliminated, &joinedAt); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seat.JoinedAt = fromUnixNano(joinedAt)
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (s *Store) loadCards(ctx context.Context, roomID string) ([]*domain.Card, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
			id, owner_seat_id, card_rank, card_suit, face_up, in_play_zone
		FROM cards WHERE room_id = ? ORDER BY id`), roomID)
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		c := &domain.Card{RoomID: roomID}
		var rank, suit string
		if err := rows.Scan(&c.ID, &c.OwnerSeatID, &rank, &suit, &c.FaceUp, &c.InPlayZone); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.Rank = domain.Rank(rank)
		c.Suit = domain.Suit(suit)
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *Store) loadMoves(ctx context.Context, roomID string) ([]*domain.Move, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
			id, seq, kind, actor_seat_id, card_ids, claimed_rank, result,
			target_move_id, revealed, created_at
		FROM moves WHERE room_id = ? ORDER BY seq`), roomID)
	if err != nil {
		return nil, fmt.Errorf("select moves: %w", err)
	}
	defer rows.Close()

	var moves []*domain.Move
	for rows.Next() {
		m := &domain.Move{RoomID: roomID}
		var (
			kind, claimed, result string
			cardIDs, revealed     string
			createdAt             int64
		)
		if err := rows.Scan(&m.ID, &m.Seq, &kind, &m.ActorSeatID, &cardIDs, &claimed, &result, &m.TargetMoveID, &revealed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		m.Kind = domain.MoveKind(kind)
		m.ClaimedRank = domain.Rank(claimed)
		m.Result = domain.MoveResult(result)
		m.Timestamp = fromUnixNano(createdAt)
		if err := decodeJSON(cardIDs, &m.CardIDs); err != nil {
			return nil, err
		}
		if err := decodeJSON(revealed, &m.Revealed); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}
