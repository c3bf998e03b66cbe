package conversation

import (
	"context"

	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/utils"
)

// menuChoice matches exact option numbers or their canonical keyword, never substrings
func menuChoice(in Input, options map[string][]string) string {
	for choice, keywords := range options {
		if in.Lower == choice {
			return choice
		}
		for _, kw := range keywords {
			if in.Lower == kw {
				return choice
			}
		}
	}
	return ""
}

var mainMenuKeywords = map[string][]string{
	"1": {"contratar", "contratar pacote"},
	"2": {"segunda via", "financeiro", "boleto"},
	"3": {"pacotes", "valores", "pacotes e valores"},
	"4": {"prazos", "prazo", "prazos de entrega"},
	"5": {"endereço", "endereco", "horários", "horarios"},
	"6": {"falar com atendente"},
	"7": {"encerrar", "sair", "encerrar atendimento"},
}

var existingClientKeywords = map[string][]string{
	"1": {"contratar", "contratar novo pacote", "novo pacote"},
	"2": {"segunda via"},
	"3": {"voltar ao menu"},
}

func (e *Engine) welcome(_ context.Context, _ Input, _ *models.Session) (*Transition, error) {
	return mainMenu(msgWelcome), nil
}

func (e *Engine) mainMenu(_ context.Context, in Input, _ *models.Session) (*Transition, error) {
	switch menuChoice(in, mainMenuKeywords) {
	case "1":
		return &Transition{
			Step:    StepContractCPF,
			Message: msgAskCPF,
			Patch: models.DataPatch{
				ClearCliente:    true,
				ClearPacote:     true,
				TentativasTurma: models.Attempts(0),
			},
		}, nil
	case "2":
		return prompt(StepBillingCPF, msgAskBillingCPF), nil
	case "3":
		return mainMenu(e.opts.Info.Packages), nil
	case "4":
		return mainMenu(e.opts.Info.Deadlines), nil
	case "5":
		return mainMenu(e.opts.Info.Address), nil
	case "6":
		return toSupport(), nil
	case "7":
		return prompt(StepWelcome, msgClosed), nil
	}
	return nil, nil
}

func (e *Engine) existingClientMenu(ctx context.Context, in Input, sess *models.Session) (*Transition, error) {
	switch menuChoice(in, existingClientKeywords) {
	case "1":
		return &Transition{
			Step:    StepContractClassCode,
			Message: msgAskClassCode,
			Patch:   models.DataPatch{ClearPacote: true, TentativasTurma: models.Attempts(0)},
		}, nil
	case "2":
		cliente := sess.Data.ClienteOrEmpty()
		if cliente.ClienteID == "" {
			return missingData(), nil
		}
		return e.openCharges(ctx, cliente.ClienteID)
	case "3":
		return mainMenu(""), nil
	}
	return nil, nil
}

func (e *Engine) billingCPF(ctx context.Context, in Input, _ *models.Session) (*Transition, error) {
	if !IsValidCPF(in.Text) {
		return prompt(StepBillingCPF, msgInvalidCPF), nil
	}
	customer, err := e.directory.FindCustomerByDocument(ctx, utils.OnlyDigits(in.Text))
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return mainMenu(msgNoCustomer), nil
	}
	return e.openCharges(ctx, customer.ID)
}

func (e *Engine) openCharges(ctx context.Context, customerID string) (*Transition, error) {
	charges, err := e.directory.ListOpenCharges(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(charges) == 0 {
		return mainMenu(msgNoCharges), nil
	}
	return mainMenu(chargesMessage(charges)), nil
}

// support stays quiet until the customer asks for the menu; a human is handling the chat
func (e *Engine) support(_ context.Context, in Input, _ *models.Session) (*Transition, error) {
	if in.Lower == "0" || in.Lower == "menu" {
		return mainMenu(""), nil
	}
	return nil, nil
}
