package models

import "time"

// BillingDueNotice is the payload the partner backend posts when a charge approaches its due date
type BillingDueNotice struct {
	CustomerID   string  `json:"customerId"`
	CustomerName string  `json:"customerName"`
	Phone        string  `json:"phone"`
	ChargeID     string  `json:"chargeId"`
	ChargeType   string  `json:"chargeType"` // boleto, pix, carne
	Amount       float64 `json:"amount"`
	DueDate      string  `json:"dueDate"` // YYYY-MM-DD
	Bucket       string  `json:"bucket"`  // D-5, D-1, D0, D+1 ...
}

// BillingNotification records that a (charge, bucket) notice was already handled
type BillingNotification struct {
	ID           uint      `gorm:"primaryKey"`
	ChargeID     string    `gorm:"size:128;not null;uniqueIndex:idx_billing_charge_bucket,priority:1"`
	Bucket       string    `gorm:"size:16;not null;uniqueIndex:idx_billing_charge_bucket,priority:2"`
	CustomerID   string    `gorm:"size:128"`
	CustomerName string    `gorm:"size:255"`
	Phone        string    `gorm:"size:32;index"`
	ChargeType   string    `gorm:"size:32"`
	Amount       float64   `gorm:"not null"`
	DueDate      string    `gorm:"size:16"`
	CreatedAt    time.Time `gorm:"not null"`
}
