package storage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ananth-NQI/vfa-backend/internal/models"
)

// LoadDataFile decodes a YAML or JSON reference file into out.
func LoadDataFile(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// LoadBeneficiaries reads the payee directory from path. Entries without
// an id or account number are rejected.
func LoadBeneficiaries(path string) ([]models.Beneficiary, error) {
	var beneficiaries []models.Beneficiary
	if err := LoadDataFile(path, &beneficiaries); err != nil {
		return nil, err
	}
	for i, b := range beneficiaries {
		if strings.TrimSpace(b.ID) == "" || strings.TrimSpace(b.AccountNumber) == "" {
			return nil, fmt.Errorf("beneficiary %d in %s: id and account_number are required", i, path)
		}
	}
	return beneficiaries, nil
}
