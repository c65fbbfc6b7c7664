package devserver

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/models"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
    id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    nickname   VARCHAR(50) UNIQUE NOT NULL,
    email      VARCHAR(255) UNIQUE NOT NULL,
    password   TEXT NOT NULL,
    avatar_url TEXT DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users (email);

CREATE TABLE IF NOT EXISTS items (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    owner_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title       VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category    VARCHAR(50) NOT NULL DEFAULT '',
    hourly_rate DOUBLE PRECISION NOT NULL,
    image_url   TEXT NOT NULL DEFAULT '',
    latitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
    longitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
    available   BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_items_category ON items (category);

CREATE TABLE IF NOT EXISTS rentals (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    item_id     UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    renter_id   UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    owner_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    start_time  TIMESTAMPTZ NOT NULL,
    end_time    TIMESTAMPTZ NOT NULL,
    total_price DOUBLE PRECISION NOT NULL,
    status      VARCHAR(20) NOT NULL DEFAULT 'requested',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_rentals_renter ON rentals (renter_id);
CREATE INDEX IF NOT EXISTS idx_rentals_owner ON rentals (owner_id);

CREATE TABLE IF NOT EXISTS reviews (
    id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    rental_id  UUID NOT NULL REFERENCES rentals(id) ON DELETE CASCADE,
    author_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    rating     INT NOT NULL,
    content    TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (rental_id, author_id)
);

CREATE TABLE IF NOT EXISTS payments (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    rental_id   UUID NOT NULL REFERENCES rentals(id) ON DELETE CASCADE,
    payment_key TEXT NOT NULL,
    order_id    TEXT NOT NULL,
    amount      DOUBLE PRECISION NOT NULL,
    status      VARCHAR(20) NOT NULL,
    approved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS rooms (
    id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    item_id    UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
    owner_id   UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    renter_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (item_id, renter_id)
);

CREATE TABLE IF NOT EXISTS messages (
    id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    room_id   UUID NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    content   TEXT NOT NULL,
    send_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_messages_room_time ON messages (room_id, send_time);
`

// PostgresStore backs the devserver with Postgres for shared deployments.
type PostgresStore struct {
	db *sql.DB
}

func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) CreateUser(nickname, email, passwordHash string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(
		`INSERT INTO users (nickname, email, password) VALUES ($1, $2, $3)
		 RETURNING id, nickname, email, avatar_url, created_at`,
		nickname, email, passwordHash,
	).Scan(&u.ID, &u.Nickname, &u.Email, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) UserByEmail(email string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(
		`SELECT id, nickname, email, password, avatar_url, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Nickname, &u.Email, &u.Password, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) UserByID(id string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(
		`SELECT id, nickname, email, avatar_url, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Nickname, &u.Email, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) CreateItem(item models.Item) (*models.Item, error) {
	err := s.db.QueryRow(
		`INSERT INTO items (owner_id, title, description, category, hourly_rate, image_url, latitude, longitude)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, available, created_at`,
		item.OwnerID, item.Title, item.Description, item.Category,
		item.HourlyRate, item.ImageURL, item.Latitude, item.Longitude,
	).Scan(&item.ID, &item.Available, &item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) UpdateItem(item models.Item) (*models.Item, error) {
	err := s.db.QueryRow(
		`UPDATE items SET title = $2, description = $3, category = $4, hourly_rate = $5,
		        image_url = CASE WHEN $6 = '' THEN image_url ELSE $6 END
		 WHERE id = $1
		 RETURNING id, owner_id, title, description, category, hourly_rate, image_url,
		           latitude, longitude, available, created_at`,
		item.ID, item.Title, item.Description, item.Category, item.HourlyRate, item.ImageURL,
	).Scan(&item.ID, &item.OwnerID, &item.Title, &item.Description, &item.Category,
		&item.HourlyRate, &item.ImageURL, &item.Latitude, &item.Longitude,
		&item.Available, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) ItemByID(id string) (*models.Item, error) {
	var item models.Item
	err := s.db.QueryRow(
		`SELECT id, owner_id, title, description, category, hourly_rate, image_url,
		        latitude, longitude, available, created_at
		 FROM items WHERE id = $1`, id,
	).Scan(&item.ID, &item.OwnerID, &item.Title, &item.Description, &item.Category,
		&item.HourlyRate, &item.ImageURL, &item.Latitude, &item.Longitude,
		&item.Available, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) ListItems(keyword, category string) ([]models.Item, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, description, category, hourly_rate, image_url,
		        latitude, longitude, available, created_at
		 FROM items
		 WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
		   AND ($2 = '' OR category = $2)
		 ORDER BY created_at DESC`, keyword, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Title, &item.Description,
			&item.Category, &item.HourlyRate, &item.ImageURL, &item.Latitude,
			&item.Longitude, &item.Available, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreateRental(rental models.Rental) (*models.Rental, error) {
	err := s.db.QueryRow(
		`INSERT INTO rentals (item_id, renter_id, owner_id, start_time, end_time, total_price)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, status, created_at`,
		rental.ItemID, rental.RenterID, rental.OwnerID,
		rental.StartTime, rental.EndTime, rental.TotalPrice,
	).Scan(&rental.ID, &rental.Status, &rental.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create rental: %w", err)
	}
	return &rental, nil
}

func (s *PostgresStore) RentalByID(id string) (*models.Rental, error) {
	var r models.Rental
	err := s.db.QueryRow(
		`SELECT id, item_id, renter_id, owner_id, start_time, end_time, total_price, status, created_at
		 FROM rentals WHERE id = $1`, id,
	).Scan(&r.ID, &r.ItemID, &r.RenterID, &r.OwnerID, &r.StartTime, &r.EndTime,
		&r.TotalPrice, &r.Status, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) UpdateRentalStatus(id, status string) (*models.Rental, error) {
	var r models.Rental
	err := s.db.QueryRow(
		`UPDATE rentals SET status = $2 WHERE id = $1
		 RETURNING id, item_id, renter_id, owner_id, start_time, end_time, total_price, status, created_at`,
		id, status,
	).Scan(&r.ID, &r.ItemID, &r.RenterID, &r.OwnerID, &r.StartTime, &r.EndTime,
		&r.TotalPrice, &r.Status, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update rental: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) RentalsForUser(userID, role string) ([]models.Rental, error) {
	rows, err := s.db.Query(
		`SELECT id, item_id, renter_id, owner_id, start_time, end_time, total_price, status, created_at
		 FROM rentals
		 WHERE ($2 = 'renter' AND renter_id = $1)
		    OR ($2 = 'owner' AND owner_id = $1)
		    OR ($2 = '' AND (renter_id = $1 OR owner_id = $1))
		 ORDER BY created_at DESC`, userID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	defer rows.Close()

	rentals := []models.Rental{}
	for rows.Next() {
		var r models.Rental
		if err := rows.Scan(&r.ID, &r.ItemID, &r.RenterID, &r.OwnerID, &r.StartTime,
			&r.EndTime, &r.TotalPrice, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		rentals = append(rentals, r)
	}
	return rentals, rows.Err()
}

func (s *PostgresStore) CreateReview(review models.Review) (*models.Review, error) {
	err := s.db.QueryRow(
		`INSERT INTO reviews (rental_id, author_id, rating, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		review.RentalID, review.AuthorID, review.Rating, review.Content,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return &review, nil
}

func (s *PostgresStore) HasReview(rentalID, authorID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE rental_id = $1 AND author_id = $2)`,
		rentalID, authorID,
	).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) ReviewsForItem(itemID string) ([]models.Review, error) {
	rows, err := s.db.Query(
		`SELECT rv.id, rv.rental_id, rv.author_id, rv.rating, rv.content, rv.created_at
		 FROM reviews rv JOIN rentals r ON rv.rental_id = r.id
		 WHERE r.item_id = $1
		 ORDER BY rv.created_at DESC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.RentalID, &rv.AuthorID, &rv.Rating, &rv.Content, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (s *PostgresStore) CreatePayment(payment models.Payment) (*models.Payment, error) {
	err := s.db.QueryRow(
		`INSERT INTO payments (rental_id, payment_key, order_id, amount, status, approved_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		payment.RentalID, payment.PaymentKey, payment.OrderID,
		payment.Amount, payment.Status, payment.ApprovedAt,
	).Scan(&payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return &payment, nil
}

func (s *PostgresStore) CreateRoom(room models.Room) (*models.Room, error) {
	err := s.db.QueryRow(
		`INSERT INTO rooms (item_id, owner_id, renter_id) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		room.ItemID, room.OwnerID, room.RenterID,
	).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return &room, nil
}

func (s *PostgresStore) RoomByID(id string) (*models.Room, error) {
	var room models.Room
	err := s.db.QueryRow(
		`SELECT r.id, r.item_id, i.title, r.owner_id, r.renter_id, r.created_at
		 FROM rooms r JOIN items i ON r.item_id = i.id
		 WHERE r.id = $1`, id,
	).Scan(&room.ID, &room.ItemID, &room.ItemTitle, &room.OwnerID, &room.RenterID, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

func (s *PostgresStore) RoomForItem(itemID, renterID string) (*models.Room, error) {
	var room models.Room
	err := s.db.QueryRow(
		`SELECT r.id, r.item_id, i.title, r.owner_id, r.renter_id, r.created_at
		 FROM rooms r JOIN items i ON r.item_id = i.id
		 WHERE r.item_id = $1 AND r.renter_id = $2`, itemID, renterID,
	).Scan(&room.ID, &room.ItemID, &room.ItemTitle, &room.OwnerID, &room.RenterID, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

func (s *PostgresStore) RoomsForUser(userID string) ([]models.Room, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.item_id, i.title, r.owner_id, r.renter_id, r.created_at,
		        COALESCE(last_msg.content, ''), last_msg.send_time
		 FROM rooms r
		 JOIN items i ON r.item_id = i.id
		 LEFT JOIN LATERAL (
		     SELECT content, send_time FROM messages
		     WHERE room_id = r.id ORDER BY send_time DESC LIMIT 1
		 ) last_msg ON true
		 WHERE r.owner_id = $1 OR r.renter_id = $1
		 ORDER BY r.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		var room models.Room
		var lastAt *time.Time
		if err := rows.Scan(&room.ID, &room.ItemID, &room.ItemTitle, &room.OwnerID,
			&room.RenterID, &room.CreatedAt, &room.LastMessage, &lastAt); err != nil {
			return nil, err
		}
		room.LastMessageAt = lastAt
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *PostgresStore) CreateMessage(roomID string, senderID chat.ID, text string, sendTime time.Time) (*chat.Message, error) {
	msg := chat.Message{RoomID: roomID, SenderID: senderID, Message: text}
	var stored time.Time
	err := s.db.QueryRow(
		`INSERT INTO messages (room_id, sender_id, content, send_time)
		 VALUES ($1, $2, $3, $4)
		 RETURNING send_time`,
		roomID, string(senderID), text, sendTime,
	).Scan(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	msg.SendTime = &stored
	return &msg, nil
}

func (s *PostgresStore) MessagesForRoom(roomID string) ([]chat.Message, error) {
	rows, err := s.db.Query(
		`SELECT room_id, sender_id, content, send_time
		 FROM messages WHERE room_id = $1 ORDER BY send_time`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []chat.Message{}
	for rows.Next() {
		var msg chat.Message
		var sendTime time.Time
		if err := rows.Scan(&msg.RoomID, &msg.SenderID, &msg.Message, &sendTime); err != nil {
			return nil, err
		}
		msg.SendTime = &sendTime
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
