package models

// Customer is a studio customer as known by the partner backend
type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Document string `json:"document"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// NewCustomer carries the fields collected in the contract flow
type NewCustomer struct {
	Name         string `json:"name"`
	Document     string `json:"document"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ZipCode      string `json:"zipCode"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	CohortID     string `json:"cohortId"`
}

// Cohort is a customer group (typically a graduating class)
type Cohort struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Institution     string `json:"institution,omitempty"`
	ConfigurationID string `json:"configurationId,omitempty"`
}

// PricingConfig is the cohort-specific commercial configuration
type PricingConfig struct {
	ID              string  `json:"id"`
	CohortID        string  `json:"cohortId"`
	MaxInstallments int     `json:"maxInstallments"`
	MinInstallment  float64 `json:"minInstallmentValue,omitempty"`
	DueDay          int     `json:"dueDay,omitempty"`
}

// CatalogItem is a selectable, priced package component
type CatalogItem struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Value           float64 `json:"value"`
	ConfigurationID string  `json:"configurationId"`
}

// Charge is an open receivable of a customer
type Charge struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"dueDate"`
	Link    string  `json:"link"`
	Barcode string  `json:"barcode,omitempty"`
	Status  string  `json:"status"`
}

// Invoice is a single payment instrument (boleto with pix)
type Invoice struct {
	ID      string `json:"id"`
	Link    string `json:"link"`
	Barcode string `json:"barcode"`
	PixCode string `json:"pixCode,omitempty"`
	DueDate string `json:"dueDate"`
}

// Installment is one slip of an installment plan (carnê)
type Installment struct {
	Number  int     `json:"number"`
	DueDate string  `json:"dueDate"`
	Amount  float64 `json:"amount"`
	Link    string  `json:"link"`
	Barcode string  `json:"barcode"`
}

// InstallmentPlan is the result of generating a carnê
type InstallmentPlan struct {
	ID           string        `json:"id"`
	Installments []Installment `json:"installments"`
}
