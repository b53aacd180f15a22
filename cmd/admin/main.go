package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"app/internal/console"
	"app/internal/logger"
	"app/internal/model"

	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Admin mode: pending|history|approve|reject")
	server := flag.String("server", "http://localhost:8080", "Backend base URL")
	name := flag.String("name", "admin", "Admin name recorded on verifications")
	key := flag.String("key", "", "Admin key to store before running the command")
	id := flag.String("id", "", "Purchase ID for approve/reject")
	notes := flag.String("notes", "", "Verification notes")
	limit := flag.Int("limit", 50, "History page size")
	flag.Parse()

	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		logger.Fatal().Msgf("Could not resolve home directory: %v", err)
	}
	store := console.NewFileKeyStore(filepath.Join(home, ".meeting-summarizer", "admin_key"))
	client := console.NewClient(*server, *name, store)

	if *key != "" {
		if err := client.SetKey(*key); err != nil {
			logger.Fatal().Msgf("Could not store admin key: %v", err)
		}
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var runErr error
	switch *mode {
	case "pending":
		runErr = listPending(ctx, client)
	case "history":
		runErr = listHistory(ctx, client, *limit)
	case "approve":
		runErr = approve(ctx, client, *id, *notes)
	case "reject":
		runErr = reject(ctx, client, *id, *notes)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if errors.Is(runErr, console.ErrReauthRequired) {
		logger.Fatal().Msg("Admin key missing or rejected, rerun with -key to store a new one")
	}
	if runErr != nil {
		logger.Fatal().Msgf("%s failed: %v", *mode, runErr)
	}
}

func listPending(ctx context.Context, client *console.Client) error {
	pending, err := client.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending purchase requests")
		return nil
	}
	for _, p := range pending {
		printPurchase(p)
	}
	return nil
}

func listHistory(ctx context.Context, client *console.Client, limit int) error {
	history, err := client.History(ctx, limit)
	if err != nil {
		return err
	}
	for _, p := range history {
		printPurchase(p)
	}
	return nil
}

func approve(ctx context.Context, client *console.Client, id, notes string) error {
	if id == "" {
		return errors.New("missing -id")
	}
	result, err := client.Approve(ctx, id, notes)
	if err != nil {
		return err
	}
	fmt.Printf("Approved: +%d credits, new balance %d\n", result.CreditsAdded, result.NewBalance)
	return nil
}

func reject(ctx context.Context, client *console.Client, id, notes string) error {
	if id == "" {
		return errors.New("missing -id")
	}
	if err := client.Reject(ctx, id, notes); err != nil {
		return err
	}
	fmt.Println("Rejected")
	return nil
}

func printPurchase(p model.CreditPurchase) {
	fmt.Printf("%s  %s  %s (%s)  %s  %d credits  Rp%d\n",
		p.ID, p.CreatedAt.Format(time.RFC3339), p.UserName, p.UserEmail, p.Status, p.Credits, p.Amount)
	if p.ProofURL != "" {
		fmt.Printf("    proof: %s\n", p.ProofURL)
	}
}
