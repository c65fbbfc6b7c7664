package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentmate/rentmate-go/internal/api"
	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/models"
)

func testClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, time.February, 1, 10, 0, 0, 0, time.Local)
	}
}

func TestSimulatedChatSource(t *testing.T) {
	ctx := context.Background()
	src := NewSimulated(testClock())

	t.Run("identity is the fixture user", func(t *testing.T) {
		id, err := src.Identity(ctx)
		require.NoError(t, err)
		assert.Equal(t, chat.ID(FixtureSelfID), id)
	})

	t.Run("history serves the seeded room", func(t *testing.T) {
		history, err := src.History(ctx, FixtureRoomID)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("subscribe opens nothing", func(t *testing.T) {
		sub, err := src.Subscribe(ctx, FixtureRoomID, func(chat.Message) {})
		require.NoError(t, err)
		assert.Nil(t, sub)
	})

	t.Run("publish stamps with the client clock and persists", func(t *testing.T) {
		echo, err := src.Publish(ctx, FixtureRoomID, chat.ID(FixtureSelfID), "see you Saturday")
		require.NoError(t, err)
		require.NotNil(t, echo)
		require.NotNil(t, echo.SendTime)
		assert.Equal(t, testClock()(), *echo.SendTime)

		history, err := src.History(ctx, FixtureRoomID)
		require.NoError(t, err)
		assert.Equal(t, "see you Saturday", history[len(history)-1].Message)
	})
}

func TestSimulatedRentalLifecycle(t *testing.T) {
	ctx := context.Background()
	src := NewSimulated(testClock())

	start := time.Date(2026, time.February, 7, 10, 0, 0, 0, time.Local)
	rental, err := src.RequestRental(ctx, api.RentalRequest{
		ItemID:     FixtureDrillID,
		StartTime:  start,
		EndTime:    start.Add(90 * time.Minute),
		TotalPrice: 40000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RentalRequested, rental.Status)
	assert.Equal(t, FixtureOwnerID, rental.OwnerID)

	t.Run("inverted window is rejected at submission", func(t *testing.T) {
		_, err := src.RequestRental(ctx, api.RentalRequest{
			ItemID:    FixtureDrillID,
			StartTime: start,
			EndTime:   start.Add(-time.Hour),
		})
		require.Error(t, err)
	})

	t.Run("approve then pay", func(t *testing.T) {
		approved, err := src.ApproveRental(ctx, rental.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RentalApproved, approved.Status)

		_, err = src.ApproveRental(ctx, rental.ID)
		require.Error(t, err, "approving twice is a conflict")

		payment, err := src.ConfirmPayment(ctx, api.PaymentConfirmation{
			PaymentKey: "pay-abc",
			OrderID:    rental.ID,
			Amount:     40000,
		})
		require.NoError(t, err)
		assert.Equal(t, "done", payment.Status)

		rentals, err := src.ListRentals(ctx, "renter")
		require.NoError(t, err)
		require.NotEmpty(t, rentals)
		assert.Equal(t, models.RentalPaid, rentals[0].Status)
	})

	t.Run("amount mismatch fails confirmation", func(t *testing.T) {
		other, err := src.RequestRental(ctx, api.RentalRequest{
			ItemID:     FixtureTentID,
			StartTime:  start,
			EndTime:    start.Add(2 * time.Hour),
			TotalPrice: 10000,
		})
		require.NoError(t, err)

		_, err = src.ConfirmPayment(ctx, api.PaymentConfirmation{
			PaymentKey: "pay-def",
			OrderID:    other.ID,
			Amount:     9999,
		})
		require.Error(t, err)
	})

	t.Run("duplicate review surfaces its own error", func(t *testing.T) {
		_, err := src.CreateReview(ctx, api.NewReview{RentalID: rental.ID, Rating: 5, Content: "great drill"})
		require.NoError(t, err)

		_, err = src.CreateReview(ctx, api.NewReview{RentalID: rental.ID, Rating: 4, Content: "again"})
		assert.ErrorIs(t, err, api.ErrDuplicateReview)

		reviews, err := src.ItemReviews(ctx, FixtureDrillID)
		require.NoError(t, err)
		assert.Len(t, reviews, 1)
	})
}

func TestSimulatedItemsAndRooms(t *testing.T) {
	ctx := context.Background()
	src := NewSimulated(testClock())

	t.Run("keyword filter", func(t *testing.T) {
		items, err := src.ListItems(ctx, api.ItemFilter{Keyword: "tent"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, FixtureTentID, items[0].ID)
	})

	t.Run("open room is idempotent per item", func(t *testing.T) {
		room, err := src.OpenRoom(ctx, FixtureDrillID)
		require.NoError(t, err)
		assert.Equal(t, FixtureRoomID, room.ID)

		rooms, err := src.ListRooms(ctx)
		require.NoError(t, err)
		assert.Len(t, rooms, 1)
	})

	t.Run("create and update item", func(t *testing.T) {
		created, err := src.CreateItem(ctx, api.NewItem{Title: "Ladder", Category: "tools", HourlyRate: 3000})
		require.NoError(t, err)
		assert.Equal(t, FixtureSelfID, created.OwnerID)

		updated, err := src.UpdateItem(ctx, created.ID, api.NewItem{Title: "Telescoping ladder", Category: "tools", HourlyRate: 3500})
		require.NoError(t, err)
		assert.Equal(t, "Telescoping ladder", updated.Title)
		assert.Equal(t, 3500.0, updated.HourlyRate)
	})
}
