package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"fluxo/internal/domain/sync"
	"fluxo/internal/infrastructure/pluggy"
	"fluxo/internal/infrastructure/postgres"
	"fluxo/internal/shared/auth"
	"fluxo/internal/shared/config"
)

const usage = `Fluxo Admin CLI - Management commands for the Fluxo API

Usage:
  admin <command> [options]

Commands:
  issue-key   Issue a new API key for a user
  sync        Run a one-off data sync

Examples:
  # Issue an API key for a user
  admin issue-key --user-id=42c1... --name=ci

  # Sync a specific user now
  admin sync --user-id=42c1...

  # Sync every user with an active connection
  admin sync --all

  # Sync with a custom timeout
  admin sync --all --timeout=1h
`

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("%s\n", usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "issue-key":
		runIssueKey(os.Args[2:])
	case "sync":
		runSync(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Printf("%s\n", usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Printf("%s\n", usage)
		os.Exit(1)
	}
}

func runIssueKey(args []string) {
	fs := flag.NewFlagSet("issue-key", flag.ExitOnError)

	userID := fs.String("user-id", "", "User the key belongs to")
	name := fs.String("name", "", "Key label (e.g. ci, spreadsheet)")

	fs.Usage = func() {
		fmt.Println("Usage: admin issue-key [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *userID == "" || *name == "" {
		fmt.Println("Error: --user-id and --name are required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	key, plaintext, err := auth.GenerateAPIKey(*userID, *name)
	if err != nil {
		log.Fatalf("Failed to generate API key: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := postgres.NewAPIKeyRepository(db).Create(ctx, key); err != nil {
		log.Fatalf("Failed to store API key: %v", err)
	}

	fmt.Printf("API key %q issued for user %s\n", *name, *userID)
	fmt.Printf("Key ID:    %s\n", key.ID)
	fmt.Printf("Plaintext: %s\n", plaintext)
	fmt.Println("Store the plaintext now; it is not recoverable later.")
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	userIDStr := fs.String("user-id", "", "User ID(s) to sync (comma-separated for multiple)")
	allUsers := fs.Bool("all", false, "Sync all users with active connections")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Println("Usage: admin sync [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Println("  admin sync --user-id=42c1...")
		fmt.Println("  admin sync --all --timeout=1h")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *userIDStr == "" && !*allUsers {
		fmt.Println("Error: must specify --user-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	connectionRepo := postgres.NewConnectionRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	cardAccountRepo := postgres.NewCreditCardAccountRepository(db)
	cardBillRepo := postgres.NewCreditCardBillRepository(db)

	client := pluggy.NewClient(cfg.Pluggy.ClientID, cfg.Pluggy.ClientSecret, cfg.Pluggy.BaseURL)
	txSync := sync.NewTransactionSyncService(client, connectionRepo, transactionRepo, cfg.Dashboard.RetentionDays)
	cardSync := sync.NewCardSyncService(client, connectionRepo, cardAccountRepo, cardBillRepo)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var userIDs []string
	if *allUsers {
		userIDs, err = connectionRepo.ListUserIDs(ctx)
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		log.Printf("Found %d users with active connections", len(userIDs))
	} else {
		for _, p := range strings.Split(*userIDStr, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				userIDs = append(userIDs, p)
			}
		}
	}

	if len(userIDs) == 0 {
		log.Println("No users to process")
		return
	}

	log.Printf("Starting sync for %d user(s)", len(userIDs))
	startTime := time.Now()

	for _, userID := range userIDs {
		txResult, err := txSync.SyncUserTransactions(ctx, userID)
		if err != nil {
			log.Printf("Transaction sync failed for user %s: %v", userID, err)
			continue
		}
		cardResult, err := cardSync.SyncUserCards(ctx, userID)
		if err != nil {
			log.Printf("Card sync failed for user %s: %v", userID, err)
			continue
		}
		printSyncResult(userID, txResult, cardResult)
	}

	log.Printf("Sync completed in %v", time.Since(startTime))
}

func printSyncResult(userID string, tx *sync.TransactionSyncResult, cards *sync.CardSyncResult) {
	fmt.Printf("\n=== User %s ===\n", userID)
	fmt.Printf("  Connections synced:   %d\n", tx.ConnectionsSynced)
	fmt.Printf("  Transactions found:   %d\n", tx.TransactionsFound)
	fmt.Printf("  Created / updated:    %d / %d\n", tx.Created, tx.Updated)
	fmt.Printf("  Skipped:              %d\n", tx.Skipped)
	fmt.Printf("  Card accounts synced: %d\n", cards.AccountsSynced)
	fmt.Printf("  Bills synced:         %d/%d (dropped %d)\n", cards.BillsSynced, cards.BillsFound, cards.BillsDropped)

	errs := append(append([]string{}, tx.Errors...), cards.Errors...)
	if len(errs) > 0 {
		fmt.Printf("  Errors:               %d\n", len(errs))
		for i, e := range errs {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(errs)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}
