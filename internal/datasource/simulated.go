package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentmate/rentmate-go/internal/api"
	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/models"
)

// Simulated serves the whole DataSource surface from in-memory fixtures so
// the client runs with no backend at all. There is no live feed: Subscribe
// opens nothing, and Publish stamps messages with the client clock and
// returns them for immediate append — a deliberate divergence from live
// mode, where the append waits for the server echo.
type Simulated struct {
	now func() time.Time

	mu       sync.Mutex
	self     models.User
	users    map[string]models.User
	items    map[string]models.Item
	rentals  map[string]models.Rental
	reviews  map[string]models.Review
	payments map[string]models.Payment
	rooms    map[string]models.Room
	messages map[string][]chat.Message
}

// NewSimulated builds a source seeded with demo fixtures. A nil clock uses
// time.Now.
func NewSimulated(now func() time.Time) *Simulated {
	if now == nil {
		now = time.Now
	}
	s := &Simulated{
		now:      now,
		users:    make(map[string]models.User),
		items:    make(map[string]models.Item),
		rentals:  make(map[string]models.Rental),
		reviews:  make(map[string]models.Review),
		payments: make(map[string]models.Payment),
		rooms:    make(map[string]models.Room),
		messages: make(map[string][]chat.Message),
	}
	s.seed()
	return s
}

// --- chat.Source ---

func (s *Simulated) Identity(ctx context.Context) (chat.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return chat.ID(s.self.ID), nil
}

func (s *Simulated) History(ctx context.Context, roomID string) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return nil, fmt.Errorf("room %s not found", roomID)
	}
	return append([]chat.Message(nil), s.messages[roomID]...), nil
}

// Subscribe has nothing to open locally; the nil handle keeps Close a no-op.
func (s *Simulated) Subscribe(ctx context.Context, roomID string, deliver func(chat.Message)) (chat.Subscription, error) {
	return nil, nil
}

func (s *Simulated) Publish(ctx context.Context, roomID string, senderID chat.ID, text string) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sendTime := s.now()
	msg := chat.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Message:  text,
		SendTime: &sendTime,
	}
	s.messages[roomID] = append(s.messages[roomID], msg)
	return &msg, nil
}

// --- marketplace operations ---

// Login matches a fixture user by email. The simulation accepts any
// password.
func (s *Simulated) Login(ctx context.Context, email, password string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			s.self = u
			out := u
			return &out, nil
		}
	}
	return nil, fmt.Errorf("no fixture user with email %s", email)
}

func (s *Simulated) ListItems(ctx context.Context, filter api.ItemFilter) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.Item
	for _, item := range s.items {
		if filter.Keyword != "" && !strings.Contains(strings.ToLower(item.Title), strings.ToLower(filter.Keyword)) {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (s *Simulated) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s not found", itemID)
	}
	return &item, nil
}

func (s *Simulated) CreateItem(ctx context.Context, item api.NewItem) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := models.Item{
		ID:          uuid.NewString(),
		OwnerID:     s.self.ID,
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		HourlyRate:  item.HourlyRate,
		ImageURL:    item.ImageURL,
		Latitude:    item.Latitude,
		Longitude:   item.Longitude,
		Available:   true,
		CreatedAt:   s.now(),
	}
	s.items[created.ID] = created
	return &created, nil
}

func (s *Simulated) UpdateItem(ctx context.Context, itemID string, item api.NewItem) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s not found", itemID)
	}
	existing.Title = item.Title
	existing.Description = item.Description
	existing.Category = item.Category
	existing.HourlyRate = item.HourlyRate
	if item.ImageURL != "" {
		existing.ImageURL = item.ImageURL
	}
	s.items[itemID] = existing
	return &existing, nil
}

func (s *Simulated) RequestRental(ctx context.Context, req api.RentalRequest) (*models.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[req.ItemID]
	if !ok {
		return nil, fmt.Errorf("item %s not found", req.ItemID)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("rental end must be after start")
	}

	rental := models.Rental{
		ID:         uuid.NewString(),
		ItemID:     item.ID,
		RenterID:   s.self.ID,
		OwnerID:    item.OwnerID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		TotalPrice: req.TotalPrice,
		Status:     models.RentalRequested,
		CreatedAt:  s.now(),
	}
	s.rentals[rental.ID] = rental
	return &rental, nil
}

func (s *Simulated) ApproveRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	return s.transition(rentalID, models.RentalRequested, models.RentalApproved)
}

func (s *Simulated) RejectRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	return s.transition(rentalID, models.RentalRequested, models.RentalRejected)
}

func (s *Simulated) CancelRental(ctx context.Context, rentalID string) (*models.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rental, ok := s.rentals[rentalID]
	if !ok {
		return nil, fmt.Errorf("rental %s not found", rentalID)
	}
	if rental.Status != models.RentalRequested && rental.Status != models.RentalApproved {
		return nil, fmt.Errorf("rental %s cannot be cancelled from %s", rentalID, rental.Status)
	}
	rental.Status = models.RentalCancelled
	s.rentals[rentalID] = rental
	return &rental, nil
}

func (s *Simulated) transition(rentalID, from, to string) (*models.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rental, ok := s.rentals[rentalID]
	if !ok {
		return nil, fmt.Errorf("rental %s not found", rentalID)
	}
	if rental.Status != from {
		return nil, fmt.Errorf("rental %s is %s, not %s", rentalID, rental.Status, from)
	}
	rental.Status = to
	s.rentals[rentalID] = rental
	return &rental, nil
}

func (s *Simulated) ListRentals(ctx context.Context, role string) ([]models.Rental, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rentals []models.Rental
	for _, rental := range s.rentals {
		switch role {
		case "renter":
			if rental.RenterID != s.self.ID {
				continue
			}
		case "owner":
			if rental.OwnerID != s.self.ID {
				continue
			}
		default:
			if rental.RenterID != s.self.ID && rental.OwnerID != s.self.ID {
				continue
			}
		}
		rentals = append(rentals, rental)
	}
	sort.Slice(rentals, func(i, j int) bool { return rentals[i].CreatedAt.After(rentals[j].CreatedAt) })
	return rentals, nil
}

func (s *Simulated) CreateReview(ctx context.Context, review api.NewReview) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.reviews {
		if existing.RentalID == review.RentalID && existing.AuthorID == s.self.ID {
			return nil, fmt.Errorf("%w", api.ErrDuplicateReview)
		}
	}
	created := models.Review{
		ID:        uuid.NewString(),
		RentalID:  review.RentalID,
		AuthorID:  s.self.ID,
		Rating:    review.Rating,
		Content:   review.Content,
		CreatedAt: s.now(),
	}
	s.reviews[created.ID] = created
	return &created, nil
}

func (s *Simulated) ItemReviews(ctx context.Context, itemID string) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reviews []models.Review
	for _, review := range s.reviews {
		rental, ok := s.rentals[review.RentalID]
		if ok && rental.ItemID == itemID {
			reviews = append(reviews, review)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (s *Simulated) ConfirmPayment(ctx context.Context, conf api.PaymentConfirmation) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rental, ok := s.rentals[conf.OrderID]
	if !ok {
		return nil, fmt.Errorf("no rental for order %s", conf.OrderID)
	}
	if rental.TotalPrice != conf.Amount {
		return nil, fmt.Errorf("payment amount %v does not match rental price %v", conf.Amount, rental.TotalPrice)
	}
	rental.Status = models.RentalPaid
	s.rentals[rental.ID] = rental

	payment := models.Payment{
		ID:         uuid.NewString(),
		RentalID:   rental.ID,
		PaymentKey: conf.PaymentKey,
		OrderID:    conf.OrderID,
		Amount:     conf.Amount,
		Status:     "done",
		ApprovedAt: s.now(),
	}
	s.payments[payment.ID] = payment
	return &payment, nil
}

func (s *Simulated) ListRooms(ctx context.Context) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rooms []models.Room
	for _, room := range s.rooms {
		if room.OwnerID != s.self.ID && room.RenterID != s.self.ID {
			continue
		}
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	return rooms, nil
}

func (s *Simulated) OpenRoom(ctx context.Context, itemID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range s.rooms {
		if room.ItemID == itemID && room.RenterID == s.self.ID {
			out := room
			return &out, nil
		}
	}

	item, ok := s.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item %s not found", itemID)
	}
	room := models.Room{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		ItemTitle: item.Title,
		OwnerID:   item.OwnerID,
		RenterID:  s.self.ID,
		CreatedAt: s.now(),
	}
	s.rooms[room.ID] = room
	return &room, nil
}
