package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
	"github.com/Ananth-NQI/vfa-backend/internal/storage"
)

// MatchKind is the outcome of a directory lookup.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchSingle
	MatchAmbiguous
)

func (k MatchKind) String() string {
	switch k {
	case MatchSingle:
		return "single"
	case MatchAmbiguous:
		return "ambiguous"
	}
	return "none"
}

// Resolution carries the resolver result. Beneficiary is set for a single
// match; Candidates holds every match when ambiguous.
type Resolution struct {
	Kind        MatchKind
	Beneficiary *models.Beneficiary
	Candidates  []models.Beneficiary
}

// BeneficiaryResolver looks up payees by free-text name or nickname.
type BeneficiaryResolver struct {
	directory storage.BeneficiaryStore
}

func NewBeneficiaryResolver(directory storage.BeneficiaryStore) *BeneficiaryResolver {
	return &BeneficiaryResolver{directory: directory}
}

// Resolve matches nickname case-insensitively against name and nickname.
func (r *BeneficiaryResolver) Resolve(ctx context.Context, nickname string) (Resolution, error) {
	needle := strings.ToLower(strings.TrimSpace(nickname))
	if needle == "" {
		return Resolution{Kind: MatchNone}, nil
	}

	all, err := r.directory.ListBeneficiaries(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to read beneficiary directory: %w", err)
	}

	var matches []models.Beneficiary
	for _, b := range all {
		if strings.ToLower(b.Name) == needle || strings.ToLower(b.Nickname) == needle {
			matches = append(matches, b)
		}
	}
	log.Printf("Found %d beneficiaries matching '%s'", len(matches), nickname)

	switch len(matches) {
	case 0:
		return Resolution{Kind: MatchNone}, nil
	case 1:
		match := matches[0]
		return Resolution{Kind: MatchSingle, Beneficiary: &match}, nil
	}
	return Resolution{Kind: MatchAmbiguous, Candidates: matches}, nil
}
