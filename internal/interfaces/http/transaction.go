package http

import (
	"encoding/csv"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"fluxo/internal/domain/transaction"
	"fluxo/internal/shared/middleware"
)

type TransactionHandler struct {
	transactionRepo transaction.Repository
}

func NewTransactionHandler(transactionRepo transaction.Repository) *TransactionHandler {
	return &TransactionHandler{
		transactionRepo: transactionRepo,
	}
}

// HandleListTransactions returns the authenticated user's transactions,
// optionally bounded by from/to calendar dates (inclusive). With
// ?format=csv the listing is returned as a CSV download instead of JSON.
// The same handler serves both the session-authenticated dashboard route
// and the API-key-authenticated external route; the middleware differs,
// the behavior does not.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if (fromStr == "") != (toStr == "") {
		http.Error(w, "from and to must be provided together", http.StatusBadRequest)
		return
	}

	var (
		transactions []*transaction.Transaction
		err          error
	)
	if fromStr != "" {
		from, perr := time.Parse("2006-01-02", fromStr)
		if perr != nil {
			http.Error(w, "Invalid from date (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		to, perr := time.Parse("2006-01-02", toStr)
		if perr != nil {
			http.Error(w, "Invalid to date (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		if to.Before(from) {
			http.Error(w, "to must not be before from", http.StatusBadRequest)
			return
		}
		transactions, err = h.transactionRepo.ListByUserIDInRange(r.Context(), userID, from, to)
	} else {
		transactions, err = h.transactionRepo.ListByUserID(r.Context(), userID)
	}
	if err != nil {
		log.Printf("Error listing transactions for user %s: %v", userID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		writeTransactionsCSV(w, transactions)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

func writeTransactionsCSV(w http.ResponseWriter, transactions []*transaction.Transaction) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "date", "description", "amount", "type", "category", "balance"})

	for _, tx := range transactions {
		category := ""
		if tx.Category != nil {
			category = *tx.Category
		}
		balance := ""
		if tx.Balance != nil {
			balance = strconv.FormatFloat(*tx.Balance, 'f', 2, 64)
		}
		cw.Write([]string{
			tx.ID,
			tx.Date.Format("2006-01-02"),
			tx.Description,
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			tx.Type,
			category,
			balance,
		})
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("Error writing CSV export: %v", err)
	}
}
