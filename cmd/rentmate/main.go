package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/rentmate/rentmate-go/internal/api"
	"github.com/rentmate/rentmate-go/internal/chat"
	"github.com/rentmate/rentmate-go/internal/config"
	"github.com/rentmate/rentmate-go/internal/datasource"
	"github.com/rentmate/rentmate-go/internal/models"
	"github.com/rentmate/rentmate-go/internal/pricing"
	"github.com/rentmate/rentmate-go/internal/store"
)

const usageText = `rentmate - rental marketplace client

Usage:
  rentmate [-mock] <command> [flags]

Commands:
  login     -email <email> -password <password>
  items     [-keyword <kw>] [-category <cat>]
  item      <item-id>
  quote     -rate <hourly> [-start <RFC3339> -end <RFC3339> | -plus-hours <n> | -plus-days <n>]
  rent      -item <item-id> -start <RFC3339> -end <RFC3339>
  rentals   [-role renter|owner]
  approve   <rental-id>
  reject    <rental-id>
  cancel    <rental-id>
  review    -rental <rental-id> -rating <1-5> [-content <text>]
  pay       -rental <rental-id> -amount <total> [-key <payment-key>]
  rooms
  chat      <room-id>

-mock runs against a seeded offline data source instead of the backend.
`

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	mock := flag.Bool("mock", false, "use the offline simulated data source")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadClient()
	if *mock {
		cfg.MockMode = true
	}

	app, err := newApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if err := app.run(context.Background(), args[0], args[1:]); err != nil {
		switch {
		case errors.Is(err, api.ErrUnauthorized):
			fmt.Fprintln(os.Stderr, "error: not logged in or session expired; run `rentmate login`")
		case errors.Is(err, api.ErrDuplicateReview):
			fmt.Fprintln(os.Stderr, "error: you already reviewed this rental")
		default:
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

type app struct {
	ds     datasource.DataSource
	engine *pricing.Engine
}

func newApp(cfg config.Client) (*app, error) {
	engine := pricing.New(nil)

	if cfg.MockMode {
		return &app{ds: datasource.NewSimulated(nil), engine: engine}, nil
	}

	sessions, err := store.NewFile(cfg.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	client := api.New(cfg.APIBaseURL, sessions, &http.Client{Timeout: 15 * time.Second})
	return &app{ds: datasource.NewRemote(client, cfg.WSURL, sessions), engine: engine}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "items":
		return a.cmdItems(ctx, args)
	case "item":
		return a.cmdItem(ctx, args)
	case "quote":
		return a.cmdQuote(ctx, args)
	case "rent":
		return a.cmdRent(ctx, args)
	case "rentals":
		return a.cmdRentals(ctx, args)
	case "approve", "reject", "cancel":
		return a.cmdDecide(ctx, command, args)
	case "review":
		return a.cmdReview(ctx, args)
	case "pay":
		return a.cmdPay(ctx, args)
	case "rooms":
		return a.cmdRooms(ctx)
	case "chat":
		return a.cmdChat(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	user, err := a.ds.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", user.Nickname, user.ID)
	return nil
}

func (a *app) cmdItems(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	keyword := fs.String("keyword", "", "filter by keyword")
	category := fs.String("category", "", "filter by category")
	fs.Parse(args)

	items, err := a.ds.ListItems(ctx, api.ItemFilter{Keyword: *keyword, Category: *category})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no items found")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%s  %-28s %10.0f/hr  [%s]\n", item.ID, item.Title, item.HourlyRate, item.Category)
	}
	return nil
}

func (a *app) cmdItem(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rentmate item <item-id>")
	}
	item, err := a.ds.GetItem(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s\n%s\n", item.Title, item.Description)
	fmt.Printf("category: %s  rate: %.0f/hr  available: %t\n", item.Category, item.HourlyRate, item.Available)

	reviews, err := a.ds.ItemReviews(ctx, item.ID)
	if err != nil {
		return err
	}
	for _, r := range reviews {
		fmt.Printf("  ★%d  %s\n", r.Rating, r.Content)
	}
	return nil
}

func (a *app) cmdQuote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	rate := fs.Float64("rate", 0, "hourly rate")
	startStr := fs.String("start", "", "rental start (RFC3339)")
	endStr := fs.String("end", "", "rental end (RFC3339)")
	plusHours := fs.Int("plus-hours", 0, "quick window: n hours from now")
	plusDays := fs.Int("plus-days", 0, "quick window: n days from now")
	fs.Parse(args)

	r := &pricing.TimeRange{}
	switch {
	case *plusHours > 0:
		r.Start, r.End = a.engine.QuickDuration(nil, *plusHours, pricing.Hour)
	case *plusDays > 0:
		r.Start, r.End = a.engine.QuickDuration(nil, *plusDays, pricing.Day)
	default:
		if *startStr != "" {
			start, err := time.Parse(time.RFC3339, *startStr)
			if err != nil {
				return fmt.Errorf("invalid -start: %w", err)
			}
			r.Start = start
		}
		if *endStr != "" {
			end, err := time.Parse(time.RFC3339, *endStr)
			if err != nil {
				return fmt.Errorf("invalid -end: %w", err)
			}
			r.End = end
		}
	}

	quote := a.engine.Compute(r, *rate)
	if quote.Zero() {
		fmt.Println("incomplete or empty window; nothing to quote yet")
		return nil
	}
	fmt.Printf("window: %s .. %s\n", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	fmt.Printf("raw duration: %.2fh  billed: %dh  total: %.0f\n", quote.RawHours, quote.BilledHours, quote.TotalPrice)
	return nil
}

func (a *app) cmdRent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rent", flag.ExitOnError)
	itemID := fs.String("item", "", "item to rent")
	startStr := fs.String("start", "", "rental start (RFC3339)")
	endStr := fs.String("end", "", "rental end (RFC3339)")
	fs.Parse(args)

	// Submission gating lives here, not in pricing: both endpoints must be
	// present and ordered before anything is sent.
	if *itemID == "" || *startStr == "" || *endStr == "" {
		return errors.New("rent requires -item, -start, and -end")
	}
	start, err := time.Parse(time.RFC3339, *startStr)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, *endStr)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}
	if !end.After(start) {
		return errors.New("end must be after start")
	}

	item, err := a.ds.GetItem(ctx, *itemID)
	if err != nil {
		return err
	}
	quote := a.engine.Compute(&pricing.TimeRange{Start: start, End: end}, item.HourlyRate)

	rental, err := a.ds.RequestRental(ctx, api.RentalRequest{
		ItemID:     item.ID,
		StartTime:  start,
		EndTime:    end,
		TotalPrice: quote.TotalPrice,
	})
	if err != nil {
		return err
	}
	fmt.Printf("rental %s requested: %dh billed, total %.0f\n", rental.ID, quote.BilledHours, quote.TotalPrice)
	return nil
}

func (a *app) cmdRentals(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rentals", flag.ExitOnError)
	role := fs.String("role", "renter", "renter or owner")
	fs.Parse(args)

	rentals, err := a.ds.ListRentals(ctx, *role)
	if err != nil {
		return err
	}
	if len(rentals) == 0 {
		fmt.Println("no rentals")
		return nil
	}
	for _, r := range rentals {
		fmt.Printf("%s  item=%s  %s .. %s  %.0f  [%s]\n",
			r.ID, r.ItemID,
			r.StartTime.Format("2006-01-02 15:04"), r.EndTime.Format("2006-01-02 15:04"),
			r.TotalPrice, r.Status)
	}
	return nil
}

func (a *app) cmdDecide(ctx context.Context, action string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rentmate %s <rental-id>", action)
	}
	decide := map[string]func(context.Context, string) (*models.Rental, error){
		"approve": a.ds.ApproveRental,
		"reject":  a.ds.RejectRental,
		"cancel":  a.ds.CancelRental,
	}[action]

	rental, err := decide(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("rental %s is now %s\n", rental.ID, rental.Status)
	return nil
}

func (a *app) cmdReview(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	rentalID := fs.String("rental", "", "rental to review")
	rating := fs.Int("rating", 0, "rating from 1 to 5")
	content := fs.String("content", "", "review text")
	fs.Parse(args)
	if *rentalID == "" || *rating < 1 || *rating > 5 {
		return errors.New("review requires -rental and -rating between 1 and 5")
	}

	review, err := a.ds.CreateReview(ctx, api.NewReview{RentalID: *rentalID, Rating: *rating, Content: *content})
	if err != nil {
		return err
	}
	fmt.Printf("review %s submitted\n", review.ID)
	return nil
}

func (a *app) cmdPay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	rentalID := fs.String("rental", "", "rental to pay for")
	amount := fs.Float64("amount", 0, "payment amount")
	key := fs.String("key", "", "payment key from the provider")
	fs.Parse(args)
	if *rentalID == "" {
		return errors.New("pay requires -rental")
	}
	if *key == "" {
		*key = fmt.Sprintf("cli-%d", time.Now().Unix())
	}

	payment, err := a.ds.ConfirmPayment(ctx, api.PaymentConfirmation{
		PaymentKey: *key,
		OrderID:    *rentalID,
		Amount:     *amount,
	})
	if err != nil {
		return err
	}
	fmt.Printf("payment %s confirmed (%.0f)\n", payment.ID, payment.Amount)
	return nil
}

func (a *app) cmdRooms(ctx context.Context) error {
	rooms, err := a.ds.ListRooms(ctx)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Println("no chat rooms")
		return nil
	}
	for _, r := range rooms {
		fmt.Printf("%s  %-28s last: %s\n", r.ID, r.ItemTitle, r.LastMessage)
	}
	return nil
}

// cmdChat runs an interactive room REPL. Incoming messages are drained off
// the session log and printed; typed lines are published. /quit leaves.
func (a *app) cmdChat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rentmate chat <room-id>")
	}

	ctl := chat.NewController(a.ds, nil, slog.Default())
	session, err := ctl.Initialize(ctx, args[0])
	if err != nil {
		return err
	}
	defer ctl.Close(session)

	if err := ctl.Subscribe(ctx, session); err != nil {
		fmt.Fprintln(os.Stderr, "warning: live feed unavailable, messages will not stream in")
	}

	for _, m := range session.Messages() {
		printMessage(session, m)
	}
	fmt.Println("-- type a message and press enter; /quit to leave --")

	done := make(chan struct{})
	go func() {
		defer close(done)
		printed := len(session.Messages())
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				msgs := session.Messages()
				for ; printed < len(msgs); printed++ {
					printMessage(session, msgs[printed])
				}
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "/quit" {
			break
		}
		if err := ctl.Publish(ctx, session, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
	return scanner.Err()
}

func printMessage(session *chat.Session, m chat.Message) {
	who := string(m.SenderID)
	if session.Mine(m) {
		who = "me"
	}
	when := ""
	if m.SendTime != nil {
		when = m.SendTime.Format("15:04")
	}
	fmt.Printf("[%s] %s: %s\n", when, who, m.Message)
}
