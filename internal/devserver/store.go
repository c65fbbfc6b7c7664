package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/models"
)

// ErrNotFound marks a missing record regardless of backing store.
var ErrNotFound = errors.New("devserver: not found")

// Store is the devserver's persistence surface. Memory backs the default
// offline mode; Postgres backs a shared dev deployment.
type Store interface {
	CreateUser(nickname, email, passwordHash string) (*models.User, error)
	UserByEmail(email string) (*models.User, error)
	UserByID(id string) (*models.User, error)

	CreateItem(item models.Item) (*models.Item, error)
	UpdateItem(item models.Item) (*models.Item, error)
	ItemByID(id string) (*models.Item, error)
	ListItems(keyword, category string) ([]models.Item, error)

	CreateRental(rental models.Rental) (*models.Rental, error)
	RentalByID(id string) (*models.Rental, error)
	UpdateRentalStatus(id, status string) (*models.Rental, error)
	RentalsForUser(userID, role string) ([]models.Rental, error)

	CreateReview(review models.Review) (*models.Review, error)
	HasReview(rentalID, authorID string) (bool, error)
	ReviewsForItem(itemID string) ([]models.Review, error)

	CreatePayment(payment models.Payment) (*models.Payment, error)

	CreateRoom(room models.Room) (*models.Room, error)
	RoomByID(id string) (*models.Room, error)
	RoomForItem(itemID, renterID string) (*models.Room, error)
	RoomsForUser(userID string) ([]models.Room, error)

	CreateMessage(roomID string, senderID chat.ID, text string, sendTime time.Time) (*chat.Message, error)
	MessagesForRoom(roomID string) ([]chat.Message, error)
}

// MemoryStore keeps everything in maps. It is the default store so the
// devserver runs with zero infrastructure.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	items    map[string]models.Item
	rentals  map[string]models.Rental
	reviews  map[string]models.Review
	payments map[string]models.Payment
	rooms    map[string]models.Room
	messages map[string][]chat.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		items:    make(map[string]models.Item),
		rentals:  make(map[string]models.Rental),
		reviews:  make(map[string]models.Review),
		payments: make(map[string]models.Payment),
		rooms:    make(map[string]models.Room),
		messages: make(map[string][]chat.Message),
	}
}

func (s *MemoryStore) CreateUser(nickname, email, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email || u.Nickname == nickname {
			return nil, errors.New("duplicate nickname or email")
		}
	}
	u := models.User{
		ID:        uuid.NewString(),
		Nickname:  nickname,
		Email:     email,
		Password:  passwordHash,
		CreatedAt: time.Now(),
	}
	s.users[u.ID] = u
	return &u, nil
}

func (s *MemoryStore) UserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UserByID(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) CreateItem(item models.Item) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now()
	item.Available = true
	s.items[item.ID] = item
	return &item, nil
}

func (s *MemoryStore) UpdateItem(item models.Item) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[item.ID]
	if !ok {
		return nil, ErrNotFound
	}
	existing.Title = item.Title
	existing.Description = item.Description
	existing.Category = item.Category
	existing.HourlyRate = item.HourlyRate
	if item.ImageURL != "" {
		existing.ImageURL = item.ImageURL
	}
	s.items[item.ID] = existing
	return &existing, nil
}

func (s *MemoryStore) ItemByID(id string) (*models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (s *MemoryStore) ListItems(keyword, category string) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := []models.Item{}
	for _, item := range s.items {
		if keyword != "" && !strings.Contains(strings.ToLower(item.Title), strings.ToLower(keyword)) {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (s *MemoryStore) CreateRental(rental models.Rental) (*models.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rental.ID = uuid.NewString()
	rental.CreatedAt = time.Now()
	rental.Status = models.RentalRequested
	s.rentals[rental.ID] = rental
	return &rental, nil
}

func (s *MemoryStore) RentalByID(id string) (*models.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rental, ok := s.rentals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rental, nil
}

func (s *MemoryStore) UpdateRentalStatus(id, status string) (*models.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rental, ok := s.rentals[id]
	if !ok {
		return nil, ErrNotFound
	}
	rental.Status = status
	s.rentals[id] = rental
	return &rental, nil
}

func (s *MemoryStore) RentalsForUser(userID, role string) ([]models.Rental, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rentals := []models.Rental{}
	for _, rental := range s.rentals {
		switch role {
		case "renter":
			if rental.RenterID != userID {
				continue
			}
		case "owner":
			if rental.OwnerID != userID {
				continue
			}
		default:
			if rental.RenterID != userID && rental.OwnerID != userID {
				continue
			}
		}
		rentals = append(rentals, rental)
	}
	sort.Slice(rentals, func(i, j int) bool { return rentals[i].CreatedAt.After(rentals[j].CreatedAt) })
	return rentals, nil
}

func (s *MemoryStore) CreateReview(review models.Review) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	review.ID = uuid.NewString()
	review.CreatedAt = time.Now()
	s.reviews[review.ID] = review
	return &review, nil
}

func (s *MemoryStore) HasReview(rentalID, authorID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, review := range s.reviews {
		if review.RentalID == rentalID && review.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ReviewsForItem(itemID string) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviews := []models.Review{}
	for _, review := range s.reviews {
		rental, ok := s.rentals[review.RentalID]
		if ok && rental.ItemID == itemID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (s *MemoryStore) CreatePayment(payment models.Payment) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment.ID = uuid.NewString()
	s.payments[payment.ID] = payment
	return &payment, nil
}

func (s *MemoryStore) CreateRoom(room models.Room) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room.ID = uuid.NewString()
	room.CreatedAt = time.Now()
	s.rooms[room.ID] = room
	return &room, nil
}

func (s *MemoryStore) RoomByID(id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &room, nil
}

func (s *MemoryStore) RoomForItem(itemID, renterID string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.rooms {
		if room.ItemID == itemID && room.RenterID == renterID {
			out := room
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) RoomsForUser(userID string) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := []models.Room{}
	for _, room := range s.rooms {
		if room.OwnerID != userID && room.RenterID != userID {
			continue
		}
		if msgs := s.messages[room.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			room.LastMessage = last.Message
			room.LastMessageAt = last.SendTime
		}
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	return rooms, nil
}

func (s *MemoryStore) CreateMessage(roomID string, senderID chat.ID, text string, sendTime time.Time) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return nil, ErrNotFound
	}
	msg := chat.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Message:  text,
		SendTime: &sendTime,
	}
	s.messages[roomID] = append(s.messages[roomID], msg)
	return &msg, nil
}

func (s *MemoryStore) MessagesForRoom(roomID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chat.Message{}, s.messages[roomID]...), nil
}
