package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studiolens/whatsapp-relay/internal/models"
	"github.com/studiolens/whatsapp-relay/internal/utils"
)

func clientePatch(c models.ClienteData) models.DataPatch {
	return models.DataPatch{Cliente: &c}
}

func (e *Engine) contractCPF(ctx context.Context, in Input, _ *models.Session) (*Transition, error) {
	if !IsValidCPF(in.Text) {
		return prompt(StepContractCPF, msgInvalidCPF), nil
	}
	cpf := utils.OnlyDigits(in.Text)

	customer, err := e.directory.FindCustomerByDocument(ctx, cpf)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		name := utils.FirstName(customer.Name)
		greeting := "Encontramos seu cadastro!"
		if name != "" {
			greeting = fmt.Sprintf("Olá, %s! Encontramos seu cadastro.", name)
		}
		return &Transition{
			Step:    StepExistingClientMenu,
			Message: greeting + " O que você deseja fazer?",
			Buttons: existingClientButtons,
			Patch: clientePatch(models.ClienteData{
				CPF:       cpf,
				Nome:      customer.Name,
				Email:     customer.Email,
				ClienteID: customer.ID,
			}),
		}, nil
	}

	return &Transition{
		Step:    StepContractClassCode,
		Message: join("✅ CPF registrado.", msgAskClassCode),
		Patch:   clientePatch(models.ClienteData{CPF: cpf}),
	}, nil
}

func (e *Engine) contractClassCode(ctx context.Context, in Input, sess *models.Session) (*Transition, error) {
	code := strings.ToUpper(in.Text)

	cohort, err := e.directory.FindCohortByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if cohort == nil {
		attempts := sess.Data.TentativasTurma + 1
		if attempts >= maxCohortAttempts {
			slog.Info("cohort code attempts exhausted, handing off", "phone", sess.Phone)
			t := toSupport()
			t.Message = join("Não conseguimos localizar sua turma.", msgSupport)
			t.Patch = models.DataPatch{TentativasTurma: models.Attempts(0)}
			return t, nil
		}
		return &Transition{
			Step: StepContractClassCode,
			Message: fmt.Sprintf("❌ Código de turma não encontrado (tentativa %d de %d). Confira o código e digite novamente.",
				attempts, maxCohortAttempts),
			Patch: models.DataPatch{TentativasTurma: models.Attempts(attempts)},
		}, nil
	}

	patch := models.DataPatch{
		Cliente: &models.ClienteData{
			TurmaID:     cohort.ID,
			TurmaNome:   cohort.Name,
			CodigoTurma: cohort.Code,
		},
		TentativasTurma: models.Attempts(0),
	}
	found := fmt.Sprintf("🎓 Turma encontrada: *%s*", cohort.Name)

	// customers that already exist skip straight to the catalog
	if sess.Data.ClienteOrEmpty().ClienteID != "" {
		return e.presentCatalog(ctx, cohort.ID, found, patch)
	}
	return &Transition{
		Step:    StepContractName,
		Message: join(found, msgAskName),
		Patch:   patch,
	}, nil
}

func (e *Engine) contractName(_ context.Context, in Input, _ *models.Session) (*Transition, error) {
	if !IsFullName(in.Text) {
		return prompt(StepContractName, msgInvalidName), nil
	}
	return &Transition{
		Step:    StepContractEmail,
		Message: msgAskEmail,
		Patch:   clientePatch(models.ClienteData{Nome: strings.Join(strings.Fields(in.Text), " ")}),
	}, nil
}

func (e *Engine) contractEmail(_ context.Context, in Input, _ *models.Session) (*Transition, error) {
	email, ok := NormalizeEmail(in.Text)
	if !ok {
		return prompt(StepContractEmail, msgInvalidEmail), nil
	}
	return &Transition{
		Step:    StepContractCEP,
		Message: msgAskCEP,
		Patch:   clientePatch(models.ClienteData{Email: email}),
	}, nil
}

func (e *Engine) contractCEP(_ context.Context, in Input, _ *models.Session) (*Transition, error) {
	cep, ok := NormalizeCEP(in.Text)
	if !ok {
		return prompt(StepContractCEP, msgInvalidCEP), nil
	}
	return &Transition{
		Step:    StepContractAddress,
		Message: msgAskAddress,
		Patch:   clientePatch(models.ClienteData{CEP: cep}),
	}, nil
}

func (e *Engine) contractAddress(_ context.Context, in Input, _ *models.Session) (*Transition, error) {
	street, _ := SplitAddress(in.Text)
	if len([]rune(street)) < 3 {
		return prompt(StepContractAddress, msgInvalidAddress), nil
	}
	return &Transition{
		Step:    StepContractNeighborhood,
		Message: msgAskNeighborhood,
		Patch:   clientePatch(models.ClienteData{Endereco: in.Text}),
	}, nil
}

func (e *Engine) contractNeighborhood(_ context.Context, in Input, _ *models.Session) (*Transition, error) {
	if len([]rune(in.Text)) < 2 {
		return prompt(StepContractNeighborhood, msgInvalidBairro), nil
	}
	return &Transition{
		Step:    StepContractCity,
		Message: msgAskCity,
		Patch:   clientePatch(models.ClienteData{Bairro: in.Text}),
	}, nil
}

func (e *Engine) contractCity(_ context.Context, in Input, _ *models.Session) (*Transition, error) {
	if len([]rune(in.Text)) < 2 {
		return prompt(StepContractCity, msgInvalidCity), nil
	}
	return &Transition{
		Step:    StepContractState,
		Message: msgAskState,
		Patch:   clientePatch(models.ClienteData{Cidade: in.Text}),
	}, nil
}

// contractState is the last field; once it is accepted the customer is created
// and the catalog is shown in the same turn
func (e *Engine) contractState(ctx context.Context, in Input, sess *models.Session) (*Transition, error) {
	uf, ok := NormalizeUF(in.Text)
	if !ok {
		return &Transition{
			Step:    StepContractState,
			Message: msgInvalidState,
			Options: stateOptions(),
		}, nil
	}

	cliente := sess.Data.ClienteOrEmpty()
	cliente.Estado = uf
	if cliente.CPF == "" || cliente.Nome == "" || cliente.Email == "" || cliente.TurmaID == "" {
		return missingData(), nil
	}

	street, number := SplitAddress(cliente.Endereco)
	created, err := e.directory.CreateCustomer(ctx, models.NewCustomer{
		Name:         cliente.Nome,
		Document:     cliente.CPF,
		Email:        cliente.Email,
		Phone:        sess.Phone,
		ZipCode:      utils.OnlyDigits(cliente.CEP),
		Street:       street,
		Number:       number,
		Neighborhood: cliente.Bairro,
		City:         cliente.Cidade,
		State:        uf,
		CohortID:     cliente.TurmaID,
	})
	if err != nil || created == nil {
		slog.Error("create customer failed", "phone", sess.Phone, "error", err)
		t := mainMenu(msgCreateFailed)
		t.Patch = clientePatch(models.ClienteData{Estado: uf})
		return t, nil
	}

	slog.Info("customer created", "phone", sess.Phone, "customer_id", created.ID)
	patch := clientePatch(models.ClienteData{Estado: uf, ClienteID: created.ID})
	return e.presentCatalog(ctx, cliente.TurmaID, "✅ Cadastro concluído!", patch)
}
