package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/storage"
	"github.com/Ananth-NQI/vfa-backend/internal/utils"
)

// TaskHandler answers a single-turn request. Its reply is terminal: the
// conversation stays in NORMAL afterwards.
type TaskHandler interface {
	Handle(ctx context.Context, userID, text string) (models.Response, error)
}

// Summarizer turns structured results into a reply.
type Summarizer interface {
	Summarize(ctx context.Context, result interface{}, query string) (string, error)
}

// Transaction is one row of the spend data set.
type Transaction struct {
	Date     string  `json:"date" yaml:"date"`
	Amount   float64 `json:"amount" yaml:"amount"`
	Category string  `json:"category" yaml:"category"`
	Merchant string  `json:"merchant" yaml:"merchant"`
}

type Offer struct {
	Title    string `json:"title" yaml:"title"`
	Details  string `json:"details" yaml:"details"`
	Category string `json:"category" yaml:"category"`
}

type FAQEntry struct {
	Question string   `json:"question" yaml:"question"`
	Answer   string   `json:"answer" yaml:"answer"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// ---------------------------------------------------------------------------
// Spend insights
// ---------------------------------------------------------------------------

type SpendHandler struct {
	transactions []Transaction
	summarizer   Summarizer
}

func NewSpendHandler(transactions []Transaction, summarizer Summarizer) *SpendHandler {
	return &SpendHandler{transactions: transactions, summarizer: summarizer}
}

type amountByName struct {
	Name   string  `json:"name" yaml:"name"`
	Amount float64 `json:"amount" yaml:"amount"`
}

type spendReport struct {
	Total        float64        `yaml:"total_spend"`
	Transactions int            `yaml:"transactions"`
	ByCategory   []amountByName `yaml:"by_category"`
	TopMerchants []amountByName `yaml:"top_merchants"`
}

func (h *SpendHandler) Handle(ctx context.Context, userID, text string) (models.Response, error) {
	if len(h.transactions) == 0 {
		return models.Response{Status: models.StatusSuccess, Message: "No transactions found for your account yet."}, nil
	}

	report := buildSpendReport(h.transactions, strings.ToLower(text))
	message, err := h.summarizer.Summarize(ctx, report, text)
	if err != nil || strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("You spent ₹%s across %d transactions.", utils.FormatAmount(report.Total), report.Transactions)
	}
	return models.Response{
		Status:  models.StatusSuccess,
		Message: message,
		Data: map[string]interface{}{
			"total_spend":   report.Total,
			"transactions":  report.Transactions,
			"by_category":   report.ByCategory,
			"top_merchants": report.TopMerchants,
		},
	}, nil
}

// buildSpendReport aggregates transactions, narrowed to one category when
// the query names it.
func buildSpendReport(transactions []Transaction, query string) spendReport {
	var filtered []Transaction
	for _, t := range transactions {
		if strings.Contains(query, strings.ToLower(t.Category)) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		filtered = transactions
	}

	report := spendReport{Transactions: len(filtered)}
	byCategory := map[string]float64{}
	byMerchant := map[string]float64{}
	for _, t := range filtered {
		report.Total += t.Amount
		byCategory[t.Category] += t.Amount
		byMerchant[t.Merchant] += t.Amount
	}
	report.ByCategory = rankAmounts(byCategory, 0)
	report.TopMerchants = rankAmounts(byMerchant, 5)
	return report
}

func rankAmounts(totals map[string]float64, limit int) []amountByName {
	ranked := make([]amountByName, 0, len(totals))
	for name, amount := range totals {
		ranked = append(ranked, amountByName{Name: name, Amount: amount})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Amount == ranked[j].Amount {
			return ranked[i].Name < ranked[j].Name
		}
		return ranked[i].Amount > ranked[j].Amount
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// ---------------------------------------------------------------------------
// FAQ
// ---------------------------------------------------------------------------

type FAQHandler struct {
	entries []FAQEntry
}

func NewFAQHandler(entries []FAQEntry) *FAQHandler {
	return &FAQHandler{entries: entries}
}

func (h *FAQHandler) Handle(ctx context.Context, userID, text string) (models.Response, error) {
	entry, score := h.bestMatch(text)
	if entry == nil {
		return models.Response{
			Status:  models.StatusSuccess,
			Message: "I couldn't find an answer to that in our FAQ. Please contact customer care for more help.",
		}, nil
	}
	return models.Response{
		Status:  models.StatusSuccess,
		Message: entry.Answer,
		Data: map[string]interface{}{
			"question": entry.Question,
			"score":    score,
		},
	}, nil
}

// bestMatch scores entries by keyword hits, breaking ties by question word overlap.
func (h *FAQHandler) bestMatch(text string) (*FAQEntry, int) {
	words := tokenize(text)
	var best *FAQEntry
	bestScore := 0
	for i := range h.entries {
		entry := &h.entries[i]
		score := 0
		for _, kw := range entry.Keywords {
			if words[strings.ToLower(kw)] {
				score += 2
			}
		}
		for w := range tokenize(entry.Question) {
			if len(w) > 3 && words[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = entry, score
		}
	}
	return best, bestScore
}

func tokenize(text string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		words[w] = true
	}
	return words
}

// ---------------------------------------------------------------------------
// Offers
// ---------------------------------------------------------------------------

type OffersHandler struct {
	offers []Offer
}

func NewOffersHandler(offers []Offer) *OffersHandler {
	return &OffersHandler{offers: offers}
}

func (h *OffersHandler) Handle(ctx context.Context, userID, text string) (models.Response, error) {
	if len(h.offers) == 0 {
		return models.Response{Status: models.StatusSuccess, Message: "No offers available right now."}, nil
	}

	lines := []string{"Here are your current offers:"}
	for _, o := range h.offers {
		lines = append(lines, fmt.Sprintf("• %s: %s", o.Title, o.Details))
	}
	return models.Response{
		Status:  models.StatusSuccess,
		Message: strings.Join(lines, "\n"),
		Data:    map[string]interface{}{"offers": h.offers},
	}, nil
}

// LoadTaskData reads the reference data files for the task handlers.
// Missing files are logged and leave the corresponding set empty.
func LoadTaskData(transactionsPath, faqPath, offersPath string) ([]Transaction, []FAQEntry, []Offer) {
	var (
		transactions []Transaction
		faqs         []FAQEntry
		offers       []Offer
	)
	if err := storage.LoadDataFile(transactionsPath, &transactions); err != nil {
		log.Printf("⚠️  Transactions not loaded: %v", err)
	}
	if err := storage.LoadDataFile(faqPath, &faqs); err != nil {
		log.Printf("⚠️  FAQ not loaded: %v", err)
	}
	if err := storage.LoadDataFile(offersPath, &offers); err != nil {
		log.Printf("⚠️  Offers not loaded: %v", err)
	}
	return transactions, faqs, offers
}
