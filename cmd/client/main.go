package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"app/internal/export"
	"app/internal/logger"
	"app/internal/orchestrator"
	"app/pkg/executor"

	"github.com/joho/godotenv"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Client mode: upload|balance")
	server := flag.String("server", "http://localhost:8080", "Backend base URL")
	user := flag.String("user", "", "User ID for credit accounting")
	file := flag.String("file", "", "Audio/video file to upload")
	out := flag.String("out", "", "Write the plain-text export to this file")
	retries := flag.Int("retries", 0, "Retry summarization up to N times on partial failure")
	flag.Parse()

	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := orchestrator.NewClient(*server, *user)
	probe := orchestrator.NewDurationProbe(executor.New())
	o := orchestrator.New(client, probe, logger)

	if _, err := o.RefreshBalance(ctx); err != nil {
		logger.Fatal().Msgf("Could not fetch credit balance: %v", err)
	}

	switch *mode {
	case "balance":
		b := o.Balance()
		fmt.Printf("Credit: %d (%d gratis + %d berbayar), durasi maksimal %d menit\n",
			b.TotalCredits, b.FreeCredits, b.PaidCredits, b.MaxDuration)
	case "upload":
		if *file == "" {
			logger.Fatal().Msg("Missing -file")
		}
		if err := runUpload(ctx, o, *file, *out, *retries); err != nil {
			logger.Fatal().Msgf("Upload failed: %v", err)
		}
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}
}

func runUpload(ctx context.Context, o *orchestrator.Orchestrator, path, out string, retries int) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	session, err := o.Upload(ctx, path, filepath.Base(path), content)
	if err != nil {
		return err
	}

	for i := 0; i < retries; i++ {
		partial, ok := session.Outcome.(orchestrator.PartialFailure)
		if !ok {
			break
		}
		fmt.Printf("Summarization gagal (%s), mencoba lagi...\n", partial.Error)
		session, err = o.Retry(ctx, session.ID)
		if err != nil {
			return err
		}
	}

	switch outcome := session.Outcome.(type) {
	case orchestrator.Completed:
		text := export.Render(export.Result{
			Filename:        outcome.OriginalFilename,
			DurationMinutes: outcome.DurationMinutes,
			Transcript:      outcome.Transcript,
			Summary:         outcome.Summary,
		})
		if out != "" {
			return os.WriteFile(out, []byte(text), 0o644)
		}
		fmt.Print(text)
		return nil
	case orchestrator.PartialFailure:
		fmt.Printf("Transkripsi berhasil, summarization gagal: %s\n", outcome.Error)
		fmt.Printf("Cache key untuk retry gratis: %s\n", outcome.CacheKey)
		return nil
	case orchestrator.HardFailure:
		return fmt.Errorf("%s", outcome.Error)
	default:
		return fmt.Errorf("processing did not finish")
	}
}
