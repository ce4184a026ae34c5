package domain

import "time"

// LocalUser is the off-ledger password record. It is related to a wallet
// credential by username only; the two stores can drift, which the
// session bridge reports as a precondition failure at login.
type LocalUser struct {
	Username     string    `gorm:"primaryKey;size:64"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the GORM default.
func (LocalUser) TableName() string {
	return "local_users"
}
