package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rentmate/rentmate-go/internal/models"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItems(r.URL.Query().Get("keyword"), r.URL.Query().Get("category"))
	if err != nil {
		slog.Error("failed to list items", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.ItemByID(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		slog.Error("failed to get item", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type itemRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	HourlyRate  float64 `json:"hourly_rate"`
	ImageURL    string  `json:"image_url"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.HourlyRate < 0 {
		writeError(w, http.StatusBadRequest, "title and a non-negative hourly_rate are required")
		return
	}

	item, err := s.store.CreateItem(models.Item{
		OwnerID:     userID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		HourlyRate:  req.HourlyRate,
		ImageURL:    req.ImageURL,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		slog.Error("failed to create item", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	itemID := mux.Vars(r)["id"]

	existing, err := s.store.ItemByID(itemID)
	if err != nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if existing.OwnerID != userID {
		writeError(w, http.StatusForbidden, "only the owner can update an item")
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.store.UpdateItem(models.Item{
		ID:          itemID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		HourlyRate:  req.HourlyRate,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		slog.Error("failed to update item", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type rentalRequest struct {
	ItemID     string    `json:"item_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	TotalPrice float64   `json:"total_price"`
}

func (s *Server) handleCreateRental(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	var req rentalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.EndTime.After(req.StartTime) {
		writeError(w, http.StatusBadRequest, "end_time must be after start_time")
		return
	}

	item, err := s.store.ItemByID(req.ItemID)
	if err != nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if item.OwnerID == userID {
		writeError(w, http.StatusBadRequest, "cannot rent your own item")
		return
	}

	rental, err := s.store.CreateRental(models.Rental{
		ItemID:     item.ID,
		RenterID:   userID,
		OwnerID:    item.OwnerID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		TotalPrice: req.TotalPrice,
	})
	if err != nil {
		slog.Error("failed to create rental", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

func (s *Server) handleRentalDecision(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	vars := mux.Vars(r)
	rentalID, action := vars["id"], vars["action"]

	rental, err := s.store.RentalByID(rentalID)
	if err != nil {
		writeError(w, http.StatusNotFound, "rental not found")
		return
	}

	var next string
	switch action {
	case "approve", "reject":
		if rental.OwnerID != userID {
			writeError(w, http.StatusForbidden, "only the owner can decide a rental")
			return
		}
		if rental.Status != models.RentalRequested {
			writeError(w, http.StatusConflict, "rental is no longer pending")
			return
		}
		if action == "approve" {
			next = models.RentalApproved
		} else {
			next = models.RentalRejected
		}
	case "cancel":
		if rental.RenterID != userID {
			writeError(w, http.StatusForbidden, "only the renter can cancel a rental")
			return
		}
		if rental.Status != models.RentalRequested && rental.Status != models.RentalApproved {
			writeError(w, http.StatusConflict, "rental can no longer be cancelled")
			return
		}
		next = models.RentalCancelled
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}

	updated, err := s.store.UpdateRentalStatus(rentalID, next)
	if err != nil {
		slog.Error("failed to update rental", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListRentals(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	rentals, err := s.store.RentalsForUser(userID, r.URL.Query().Get("role"))
	if err != nil {
		slog.Error("failed to list rentals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	var req struct {
		RentalID string `json:"rental_id"`
		Rating   int    `json:"rating"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	rental, err := s.store.RentalByID(req.RentalID)
	if err != nil {
		writeError(w, http.StatusNotFound, "rental not found")
		return
	}
	if rental.RenterID != userID && rental.OwnerID != userID {
		writeError(w, http.StatusForbidden, "not a party to this rental")
		return
	}

	exists, err := s.store.HasReview(req.RentalID, userID)
	if err != nil {
		slog.Error("failed to check review", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "review already submitted for this rental")
		return
	}

	review, err := s.store.CreateReview(models.Review{
		RentalID: req.RentalID,
		AuthorID: userID,
		Rating:   req.Rating,
		Content:  req.Content,
	})
	if err != nil {
		slog.Error("failed to create review", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleItemReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.store.ReviewsForItem(mux.Vars(r)["id"])
	if err != nil {
		slog.Error("failed to list reviews", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	var req struct {
		PaymentKey string  `json:"paymentKey"`
		OrderID    string  `json:"orderId"`
		Amount     float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rental, err := s.store.RentalByID(req.OrderID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no rental for this order")
		return
	}
	if rental.RenterID != userID {
		writeError(w, http.StatusForbidden, "only the renter can pay")
		return
	}
	if rental.TotalPrice != req.Amount {
		writeError(w, http.StatusBadRequest, "payment amount does not match rental price")
		return
	}

	if _, err := s.store.UpdateRentalStatus(rental.ID, models.RentalPaid); err != nil {
		slog.Error("failed to mark rental paid", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payment, err := s.store.CreatePayment(models.Payment{
		RentalID:   rental.ID,
		PaymentKey: req.PaymentKey,
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Status:     "done",
		ApprovedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to record payment", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	rooms, err := s.store.RoomsForUser(userID)
	if err != nil {
		slog.Error("failed to list rooms", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleOpenRoom(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	var req struct {
		ItemID string `json:"itemId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}

	if room, err := s.store.RoomForItem(req.ItemID, userID); err == nil {
		writeJSON(w, http.StatusOK, room)
		return
	}

	item, err := s.store.ItemByID(req.ItemID)
	if err != nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if item.OwnerID == userID {
		writeError(w, http.StatusBadRequest, "cannot open a room with yourself")
		return
	}

	room, err := s.store.CreateRoom(models.Room{
		ItemID:    item.ID,
		ItemTitle: item.Title,
		OwnerID:   item.OwnerID,
		RenterID:  userID,
	})
	if err != nil {
		slog.Error("failed to create room", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleRoomMessages(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	roomID := mux.Vars(r)["id"]

	room, err := s.store.RoomByID(roomID)
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	if room.OwnerID != userID && room.RenterID != userID {
		writeError(w, http.StatusForbidden, "not a member of this room")
		return
	}

	messages, err := s.store.MessagesForRoom(roomID)
	if err != nil {
		slog.Error("failed to list messages", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
