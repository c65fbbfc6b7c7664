package devserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentmate/rentmate-go/internal/api"
	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/datasource"
	"github.com/rentmate/rentmate-go/internal/store"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(Options{
		Store:      NewMemoryStore(),
		JWTSecret:  testSecret,
		CORSOrigin: "*",
	})
	srv.Run()
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown()
	})
	return srv, ts
}

func newTestClient(ts *httptest.Server) (*api.Client, store.SessionStore) {
	sessions := store.NewMemory()
	return api.New(ts.URL, sessions, ts.Client()), sessions
}

func register(t *testing.T, client *api.Client, nickname, email string) string {
	t.Helper()
	user, err := client.Register(context.Background(), nickname, email, "password1")
	require.NoError(t, err)
	return user.ID
}

func TestRegisterAndLogin(t *testing.T) {
	_, ts := newTestServer(t)
	client, sessions := newTestClient(ts)

	userID := register(t, client, "mina", "mina@example.com")
	assert.NotEmpty(t, userID)
	assert.NotEmpty(t, sessions.Get(store.KeyAccessToken))

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mina", me.Nickname)

	require.NoError(t, client.Logout())
	_, err = client.Me(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	_, err = client.Login(context.Background(), "mina@example.com", "password1")
	require.NoError(t, err)

	_, err = client.Login(context.Background(), "mina@example.com", "wrong")
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	_, ts := newTestServer(t)
	client, _ := newTestClient(ts)

	register(t, client, "mina", "mina@example.com")

	other, _ := newTestClient(ts)
	_, err := other.Register(context.Background(), "mina2", "mina@example.com", "password1")
	require.Error(t, err)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
}

func TestRentalLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()

	owner, _ := newTestClient(ts)
	register(t, owner, "owner", "owner@example.com")
	item, err := owner.CreateItem(ctx, api.NewItem{Title: "Cordless drill", HourlyRate: 20000})
	require.NoError(t, err)

	renter, _ := newTestClient(ts)
	register(t, renter, "renter", "renter@example.com")

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rental, err := renter.RequestRental(ctx, api.RentalRequest{
		ItemID:     item.ID,
		StartTime:  start,
		EndTime:    start.Add(90 * time.Minute),
		TotalPrice: 40000,
	})
	require.NoError(t, err)
	assert.Equal(t, "requested", rental.Status)

	// Renting your own item is rejected.
	_, err = owner.RequestRental(ctx, api.RentalRequest{
		ItemID:    item.ID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	require.Error(t, err)

	// Inverted windows never reach the store.
	_, err = renter.RequestRental(ctx, api.RentalRequest{
		ItemID:    item.ID,
		StartTime: start.Add(time.Hour),
		EndTime:   start,
	})
	require.Error(t, err)

	// Only the owner can approve.
	_, err = renter.ApproveRental(ctx, rental.ID)
	require.Error(t, err)

	approved, err := owner.ApproveRental(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", approved.Status)

	// A decided rental cannot be decided again.
	_, err = owner.RejectRental(ctx, rental.ID)
	require.Error(t, err)

	// Amount must match the agreed price.
	_, err = renter.ConfirmPayment(ctx, api.PaymentConfirmation{
		PaymentKey: "pay_1", OrderID: rental.ID, Amount: 99,
	})
	require.Error(t, err)

	payment, err := renter.ConfirmPayment(ctx, api.PaymentConfirmation{
		PaymentKey: "pay_1", OrderID: rental.ID, Amount: 40000,
	})
	require.NoError(t, err)
	assert.Equal(t, "done", payment.Status)

	mine, err := renter.ListRentals(ctx, "renter")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "paid", mine[0].Status)
}

func TestReviewOncePerRental(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()

	owner, _ := newTestClient(ts)
	register(t, owner, "owner", "owner@example.com")
	item, err := owner.CreateItem(ctx, api.NewItem{Title: "Tent", HourlyRate: 5000})
	require.NoError(t, err)

	renter, _ := newTestClient(ts)
	register(t, renter, "renter", "renter@example.com")

	start := time.Now().Truncate(time.Hour)
	rental, err := renter.RequestRental(ctx, api.RentalRequest{
		ItemID: item.ID, StartTime: start, EndTime: start.Add(time.Hour), TotalPrice: 5000,
	})
	require.NoError(t, err)

	_, err = renter.CreateReview(ctx, api.NewReview{RentalID: rental.ID, Rating: 5, Content: "great"})
	require.NoError(t, err)

	_, err = renter.CreateReview(ctx, api.NewReview{RentalID: rental.ID, Rating: 4, Content: "again"})
	assert.ErrorIs(t, err, api.ErrDuplicateReview)

	// The owner reviewing the same rental is a different author, not a dup.
	_, err = owner.CreateReview(ctx, api.NewReview{RentalID: rental.ID, Rating: 5, Content: "smooth"})
	require.NoError(t, err)

	reviews, err := renter.ItemReviews(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestItemOwnership(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()

	owner, _ := newTestClient(ts)
	register(t, owner, "owner", "owner@example.com")
	item, err := owner.CreateItem(ctx, api.NewItem{Title: "Ladder", HourlyRate: 3000})
	require.NoError(t, err)

	stranger, _ := newTestClient(ts)
	register(t, stranger, "stranger", "stranger@example.com")
	_, err = stranger.UpdateItem(ctx, item.ID, api.NewItem{Title: "Hijacked", HourlyRate: 1})
	require.Error(t, err)

	updated, err := owner.UpdateItem(ctx, item.ID, api.NewItem{Title: "Tall ladder", HourlyRate: 3500})
	require.NoError(t, err)
	assert.Equal(t, "Tall ladder", updated.Title)
}

func TestListItemsFilter(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()

	owner, _ := newTestClient(ts)
	register(t, owner, "owner", "owner@example.com")
	_, err := owner.CreateItem(ctx, api.NewItem{Title: "Cordless drill", Category: "tools", HourlyRate: 20000})
	require.NoError(t, err)
	_, err = owner.CreateItem(ctx, api.NewItem{Title: "Camping tent", Category: "outdoor", HourlyRate: 5000})
	require.NoError(t, err)

	anon, _ := newTestClient(ts)
	items, err := anon.ListItems(ctx, api.ItemFilter{Keyword: "drill"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Cordless drill", items[0].Title)

	items, err = anon.ListItems(ctx, api.ItemFilter{Category: "outdoor"})
	require.NoError(t, err)
	require.Len(t, items, 1)
}

// openRoomBetween registers an owner with one item and a renter, and opens
// their chat room.
func openRoomBetween(t *testing.T, ts *httptest.Server) (ownerDS, renterDS *datasource.Remote, roomID string) {
	t.Helper()
	ctx := context.Background()
	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws/chat"

	ownerAPI, ownerSessions := newTestClient(ts)
	register(t, ownerAPI, "owner", "owner@example.com")
	item, err := ownerAPI.CreateItem(ctx, api.NewItem{Title: "Drill", HourlyRate: 20000})
	require.NoError(t, err)

	renterAPI, renterSessions := newTestClient(ts)
	register(t, renterAPI, "renter", "renter@example.com")
	room, err := renterAPI.OpenRoom(ctx, item.ID)
	require.NoError(t, err)

	// Opening the same room twice returns the existing one.
	again, err := renterAPI.OpenRoom(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, room.ID, again.ID)

	ownerDS = datasource.NewRemote(ownerAPI, wsURL, ownerSessions)
	renterDS = datasource.NewRemote(renterAPI, wsURL, renterSessions)
	return ownerDS, renterDS, room.ID
}

func TestChatEndToEnd(t *testing.T) {
	srv, ts := newTestServer(t)
	ctx := context.Background()

	ownerDS, renterDS, roomID := openRoomBetween(t, ts)

	ownerCtl := chat.NewController(ownerDS, time.Now, nil)
	renterCtl := chat.NewController(renterDS, time.Now, nil)

	ownerSess, err := ownerCtl.Initialize(ctx, roomID)
	require.NoError(t, err)
	renterSess, err := renterCtl.Initialize(ctx, roomID)
	require.NoError(t, err)

	require.NoError(t, ownerCtl.Subscribe(ctx, ownerSess))
	require.NoError(t, renterCtl.Subscribe(ctx, renterSess))

	// ENTER frames are processed asynchronously; publish only once both
	// connections are scoped to the room.
	waitFor(t, func() bool { return clientsInRoom(srv.hub, roomID) == 2 })

	require.NoError(t, renterCtl.Publish(ctx, renterSess, "is the drill free tomorrow?"))

	// Both sides receive the message through the server echo.
	waitFor(t, func() bool { return len(ownerSess.Messages()) == 1 })
	waitFor(t, func() bool { return len(renterSess.Messages()) == 1 })

	got := renterSess.Messages()[0]
	assert.Equal(t, "is the drill free tomorrow?", got.Message)
	assert.True(t, renterSess.Mine(got))
	assert.False(t, ownerSess.Mine(ownerSess.Messages()[0]))

	// Whitespace publishes are dropped client-side.
	require.NoError(t, renterCtl.Publish(ctx, renterSess, "   "))

	require.NoError(t, ownerCtl.Publish(ctx, ownerSess, "yes, from 10am"))
	waitFor(t, func() bool { return len(renterSess.Messages()) == 2 })

	renterCtl.Close(renterSess)
	ownerCtl.Close(ownerSess)

	// History persisted server-side survives the session teardown.
	freshSess, err := renterCtl.Initialize(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, freshSess.Messages(), 2)
	renterCtl.Close(freshSess)
}

func TestChatRequiresMembership(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()

	_, _, roomID := openRoomBetween(t, ts)

	strangerAPI, strangerSessions := newTestClient(ts)
	register(t, strangerAPI, "stranger", "stranger@example.com")
	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws/chat"
	strangerDS := datasource.NewRemote(strangerAPI, wsURL, strangerSessions)

	ctl := chat.NewController(strangerDS, time.Now, nil)
	_, err := ctl.Initialize(ctx, roomID)
	require.Error(t, err)
}

// The logging middleware wraps every response writer; the wrapper must keep
// supporting connection hijacking or no WebSocket upgrade ever succeeds.
func TestWSUpgradeThroughMiddleware(t *testing.T) {
	_, ts := newTestServer(t)

	client, sessions := newTestClient(ts)
	register(t, client, "mina", "mina@example.com")
	token := sessions.Get(store.KeyAccessToken)
	require.NotEmpty(t, token)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws/chat?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, 101, resp.StatusCode)
}

func clientsInRoom(h *Hub, roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.roomID() == roomID {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
