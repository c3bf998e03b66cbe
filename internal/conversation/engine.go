// Package conversation is the WhatsApp conversation state machine. It maps the
// current step, the session data and an inbound message to the next step, the
// reply and a patch for the session data. It never persists anything itself.
package conversation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/studiolens/whatsapp-relay/internal/messaging"
	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/payment"
)

// Step names a node of the state machine
type Step string

const (
	StepWelcome              Step = models.DefaultStep
	StepMainMenu             Step = "main_menu"
	StepContractCPF          Step = "contract_cpf"
	StepExistingClientMenu   Step = "existing_client_menu"
	StepContractClassCode    Step = "contract_class_code"
	StepContractName         Step = "contract_name"
	StepContractEmail        Step = "contract_email"
	StepContractCEP          Step = "contract_cep"
	StepContractAddress      Step = "contract_address"
	StepContractNeighborhood Step = "contract_neighborhood"
	StepContractCity         Step = "contract_city"
	StepContractState        Step = "contract_state"
	StepPackageSelection     Step = "package_selection"
	StepPackageConfirmation  Step = "package_confirmation"
	StepPaymentMethod        Step = "payment_method"
	StepCarneParcelas        Step = "carne_parcelas"
	StepBillingCPF           Step = "billing_cpf"
	StepSupport              Step = "support"
)

// maxCohortAttempts is how many unknown cohort codes we accept before handing off to a human
const maxCohortAttempts = 3

// CustomerDirectory is the partner backend as seen by the conversation
type CustomerDirectory interface {
	FindCustomerByDocument(ctx context.Context, document string) (*models.Customer, error)
	FindCohortByCode(ctx context.Context, code string) (*models.Cohort, error)
	GetCohortPricing(ctx context.Context, cohortID string) (*models.PricingConfig, error)
	GetCustomItems(ctx context.Context, cohortID string) ([]models.CatalogItem, error)
	CreateCustomer(ctx context.Context, in models.NewCustomer) (*models.Customer, error)
	ListOpenCharges(ctx context.Context, customerID string) ([]models.Charge, error)
}

// PaymentBackend generates payment instruments
type PaymentBackend interface {
	GenerateInvoice(ctx context.Context, req payment.InvoiceRequest) (*models.Invoice, error)
	GenerateInstallmentPlan(ctx context.Context, req payment.InstallmentRequest) (*models.InstallmentPlan, error)
}

// Input is one normalized inbound message
type Input struct {
	Text  string // trimmed content: typed text or the tapped selection id
	Lower string // Text lower-cased, for keyword matching
}

// NewInput normalizes raw content
func NewInput(raw string) Input {
	text := strings.TrimSpace(raw)
	return Input{Text: text, Lower: strings.ToLower(text)}
}

// Transition is the result of one step: where to go, what to say and what to remember.
// At most one of Buttons, List and Options is set.
type Transition struct {
	Step    Step
	Message string
	Buttons []messaging.Button
	List    *messaging.List
	Options *messaging.OptionList
	Patch   models.DataPatch
}

// Handler runs one step. A nil transition means the input is not valid here
// and nothing should be sent.
type Handler func(ctx context.Context, in Input, sess *models.Session) (*Transition, error)

// StudioInfo is the static text behind the informational menu options
type StudioInfo struct {
	Packages  string
	Deadlines string
	Address   string
}

// Options tunes the engine
type Options struct {
	DefaultMaxInstallments int
	InvoiceDueDays         int
	Info                   StudioInfo
	Now                    func() time.Time
}

// Engine dispatches inputs to the handler registered for the session's step
type Engine struct {
	handlers  map[Step]Handler
	directory CustomerDirectory
	payments  PaymentBackend
	opts      Options
}

// New builds the engine with every step registered
func New(directory CustomerDirectory, payments PaymentBackend, opts Options) *Engine {
	if opts.DefaultMaxInstallments <= 0 {
		opts.DefaultMaxInstallments = 12
	}
	if opts.InvoiceDueDays <= 0 {
		opts.InvoiceDueDays = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Info == (StudioInfo{}) {
		opts.Info = defaultStudioInfo
	}

	e := &Engine{
		directory: directory,
		payments:  payments,
		opts:      opts,
	}
	e.handlers = map[Step]Handler{
		StepWelcome:              e.welcome,
		StepMainMenu:             e.mainMenu,
		StepContractCPF:          e.contractCPF,
		StepExistingClientMenu:   e.existingClientMenu,
		StepContractClassCode:    e.contractClassCode,
		StepContractName:         e.contractName,
		StepContractEmail:        e.contractEmail,
		StepContractCEP:          e.contractCEP,
		StepContractAddress:      e.contractAddress,
		StepContractNeighborhood: e.contractNeighborhood,
		StepContractCity:         e.contractCity,
		StepContractState:        e.contractState,
		StepPackageSelection:     e.packageSelection,
		StepPackageConfirmation:  e.packageConfirmation,
		StepPaymentMethod:        e.paymentMethod,
		StepCarneParcelas:        e.carneParcelas,
		StepBillingCPF:           e.billingCPF,
		StepSupport:              e.support,
	}
	return e
}

// Handles reports whether a step has a registered handler
func (e *Engine) Handles(step Step) bool {
	_, ok := e.handlers[step]
	return ok
}

// Handle computes the transition for one inbound message. Failures of the
// partner or payment backends become an apology and a return to the main menu;
// nothing is returned as an error.
func (e *Engine) Handle(ctx context.Context, sess *models.Session, raw string) *Transition {
	in := NewInput(raw)
	step := Step(sess.CurrentStep)

	if t := e.globalKeyword(in, step); t != nil {
		return t
	}

	handler, ok := e.handlers[step]
	if !ok {
		slog.Warn("unknown conversation step, restarting", "phone", sess.Phone, "step", step)
		handler = e.welcome
	}

	t, err := handler(ctx, in, sess)
	if err != nil {
		slog.Error("conversation step failed", "phone", sess.Phone, "step", step, "error", err)
		return apology()
	}
	return t
}

// supportFallbackSteps are the menu steps where free text mentioning a human
// hands off to support. Field collection steps only see their own validators.
var supportFallbackSteps = map[Step]bool{
	StepWelcome:             true,
	StepMainMenu:            true,
	StepExistingClientMenu:  true,
	StepPackageConfirmation: true,
	StepPaymentMethod:       true,
	StepCarneParcelas:       true,
}

func (e *Engine) globalKeyword(in Input, step Step) *Transition {
	switch in.Lower {
	case "menu", "voltar", "inicio", "início":
		return mainMenu("")
	}
	if !supportFallbackSteps[step] {
		return nil
	}
	for _, kw := range []string{"atendente", "suporte", "humano"} {
		if strings.Contains(in.Lower, kw) {
			return toSupport()
		}
	}
	return nil
}
