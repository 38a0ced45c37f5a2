package models

// Beneficiary is a payee in the user's directory. Read-only reference data.
type Beneficiary struct {
	ID            string `json:"id" yaml:"id" gorm:"primaryKey"`
	Name          string `json:"name" yaml:"name" gorm:"not null;index"`
	Nickname      string `json:"nickname" yaml:"nickname" gorm:"index"`
	AccountNumber string `json:"account_number" yaml:"account_number" gorm:"not null"`
	IFSC          string `json:"ifsc" yaml:"ifsc"`
	Bank          string `json:"bank" yaml:"bank"`
}
