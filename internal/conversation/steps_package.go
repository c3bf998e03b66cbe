package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/payment"
)

const (
	paymentBoletoPix = "boleto_pix"
	paymentCarne     = "carne"
)

var confirmationKeywords = map[string][]string{
	"1": {"confirmar", "sim"},
	"2": {"alterar"},
	"3": {"cancelar", "não", "nao"},
}

var paymentKeywords = map[string][]string{
	"1": {"boleto", "pix", "boleto / pix", "boleto/pix", "à vista", "a vista"},
	"2": {"carnê", "carne", "parcelado"},
}

// presentCatalog lists the cohort's items and moves to package_selection. The
// patch is kept even when the catalog cannot be loaded, so data gathered in
// this turn is not lost.
func (e *Engine) presentCatalog(ctx context.Context, cohortID, intro string, patch models.DataPatch) (*Transition, error) {
	items, err := e.directory.GetCustomItems(ctx, cohortID)
	if err != nil {
		slog.Error("load catalog failed", "cohort_id", cohortID, "error", err)
		t := apology()
		t.Patch = patch
		return t, nil
	}
	if len(items) == 0 {
		t := toSupport()
		t.Message = join(intro, msgNoItems)
		t.Patch = patch
		return t, nil
	}
	return &Transition{
		Step:    StepPackageSelection,
		Message: catalogMessage(intro, items),
		Patch:   patch,
	}, nil
}

func (e *Engine) packageSelection(ctx context.Context, in Input, sess *models.Session) (*Transition, error) {
	cohortID := sess.Data.ClienteOrEmpty().TurmaID
	if cohortID == "" {
		return missingData(), nil
	}

	items, err := e.directory.GetCustomItems(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return missingData(), nil
	}

	positions, invalid := ParseSelection(in.Text, len(items))
	if len(invalid) > 0 {
		return prompt(StepPackageSelection, invalidSelectionMessage(invalid, len(items))), nil
	}
	if len(positions) == 0 {
		return prompt(StepPackageSelection, msgPickItems), nil
	}

	selected := make([]models.SelectedItem, 0, len(positions))
	total := 0.0
	for _, pos := range positions {
		it := items[pos-1]
		selected = append(selected, models.SelectedItem{ID: it.ID, Nome: it.Name, Valor: it.Value})
		total += it.Value
	}
	pacote := models.PacoteData{ItensSelecionados: selected, ValorTotal: roundCents(total)}

	return &Transition{
		Step:    StepPackageConfirmation,
		Message: orderSummary(pacote),
		Buttons: confirmationButtons,
		Patch:   models.DataPatch{ClearPacote: true, Pacote: &pacote},
	}, nil
}

func (e *Engine) packageConfirmation(ctx context.Context, in Input, sess *models.Session) (*Transition, error) {
	pacote := sess.Data.PacoteOrEmpty()
	if len(pacote.ItensSelecionados) == 0 {
		return missingData(), nil
	}

	switch menuChoice(in, confirmationKeywords) {
	case "1":
		return &Transition{
			Step:    StepPaymentMethod,
			Message: msgPayMethod,
			List:    &paymentMethodList,
		}, nil
	case "2":
		return e.presentCatalog(ctx, sess.Data.ClienteOrEmpty().TurmaID, "", models.DataPatch{ClearPacote: true})
	case "3":
		t := mainMenu(msgCancelled)
		t.Patch = models.DataPatch{ClearPacote: true}
		return t, nil
	}
	return nil, nil
}

func (e *Engine) paymentMethod(ctx context.Context, in Input, sess *models.Session) (*Transition, error) {
	choice := menuChoice(in, paymentKeywords)
	if choice == "" {
		return nil, nil
	}

	cliente := sess.Data.ClienteOrEmpty()
	pacote := sess.Data.PacoteOrEmpty()
	if cliente.ClienteID == "" || pacote.ValorTotal <= 0 {
		return missingData(), nil
	}

	if choice == "1" {
		return e.generateInvoice(ctx, sess, cliente, pacote)
	}

	pricing, err := e.directory.GetCohortPricing(ctx, cliente.TurmaID)
	if err != nil {
		return nil, err
	}
	maxParcelas := e.opts.DefaultMaxInstallments
	if pricing != nil && pricing.MaxInstallments > 0 {
		maxParcelas = pricing.MaxInstallments
	}

	return &Transition{
		Step:    StepCarneParcelas,
		Message: fmt.Sprintf("Em quantas parcelas você quer pagar? Responda com um número de 1 a %d.", maxParcelas),
		Options: installmentOptions(pacote.ValorTotal, maxParcelas),
		Patch: models.DataPatch{Pacote: &models.PacoteData{
			FormaPagamento: paymentCarne,
			MaxParcelas:    maxParcelas,
		}},
	}, nil
}

func (e *Engine) generateInvoice(ctx context.Context, sess *models.Session, cliente models.ClienteData, pacote models.PacoteData) (*Transition, error) {
	due := e.opts.Now().AddDate(0, 0, e.opts.InvoiceDueDays)
	invoice, err := e.payments.GenerateInvoice(ctx, payment.InvoiceRequest{
		CustomerID:  cliente.ClienteID,
		Amount:      pacote.ValorTotal,
		Description: packageDescription(cliente),
		DueDate:     due,
	})
	patch := models.DataPatch{Pacote: &models.PacoteData{FormaPagamento: paymentBoletoPix}}
	if err != nil {
		slog.Error("generate invoice failed", "phone", sess.Phone, "error", err)
		t := apology()
		t.Patch = patch
		return t, nil
	}

	slog.Info("invoice generated", "phone", sess.Phone, "invoice_id", invoice.ID)
	t := mainMenu(invoiceMessage(invoice, pacote.ValorTotal))
	t.Patch = patch
	return t, nil
}

func (e *Engine) carneParcelas(ctx context.Context, in Input, sess *models.Session) (*Transition, error) {
	cliente := sess.Data.ClienteOrEmpty()
	pacote := sess.Data.PacoteOrEmpty()
	if cliente.ClienteID == "" || pacote.ValorTotal <= 0 {
		return missingData(), nil
	}
	maxParcelas := pacote.MaxParcelas
	if maxParcelas <= 0 {
		maxParcelas = e.opts.DefaultMaxInstallments
	}

	n, ok := ParseInstallments(in.Text)
	if !ok || n < 1 || n > maxParcelas {
		return &Transition{
			Step:    StepCarneParcelas,
			Message: fmt.Sprintf("❌ Número de parcelas inválido. Escolha de 1 a %d.", maxParcelas),
			Options: installmentOptions(pacote.ValorTotal, maxParcelas),
		}, nil
	}

	plan, err := e.payments.GenerateInstallmentPlan(ctx, payment.InstallmentRequest{
		CustomerID:   cliente.ClienteID,
		Amount:       pacote.ValorTotal,
		Description:  packageDescription(cliente),
		Installments: n,
		FirstDueDate: e.opts.Now().AddDate(0, 0, e.opts.InvoiceDueDays),
	})
	patch := models.DataPatch{Pacote: &models.PacoteData{Parcelas: n}}
	if err != nil {
		slog.Error("generate installment plan failed", "phone", sess.Phone, "error", err)
		t := apology()
		t.Patch = patch
		return t, nil
	}

	slog.Info("installment plan generated", "phone", sess.Phone, "plan_id", plan.ID, "installments", n)
	t := mainMenu(installmentPlanMessage(plan))
	t.Patch = patch
	return t, nil
}

func packageDescription(c models.ClienteData) string {
	if c.TurmaNome != "" {
		return "Pacote de fotos - " + c.TurmaNome
	}
	return "Pacote de fotos"
}
