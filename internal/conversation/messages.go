package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/studiolens/whatsapp-relay/internal/messaging"
	"github.com/studiolens/whatsapp-relay/internal/models"
)

var defaultStudioInfo = StudioInfo{
	Packages: "📸 *Pacotes e valores*\n\nOs pacotes são montados por turma: álbum, fotos avulsas, " +
		"ensaios e extras. Os valores dependem da configuração da sua turma e aparecem quando você " +
		"inicia a contratação com o código da turma.",
	Deadlines: "⏱️ *Prazos de entrega*\n\nFotos digitais: até 30 dias após o evento.\n" +
		"Álbuns impressos: até 90 dias após a aprovação das fotos.",
	Address: "📍 *Endereço e horários*\n\nAtendimento de segunda a sexta, das 9h às 18h, " +
		"e aos sábados, das 9h às 13h.",
}

const (
	msgWelcome = "Olá! 👋 Bem-vindo(a) ao atendimento do estúdio."
	msgMenu    = "Como podemos ajudar? Escolha uma das opções:"

	msgAskCPF          = "Para contratar um pacote, informe seu *CPF* (apenas números)."
	msgAskBillingCPF   = "Para consultar suas cobranças, informe o *CPF* do titular (apenas números)."
	msgInvalidCPF      = "❌ CPF inválido. Confira os números e digite novamente os 11 dígitos do seu CPF."
	msgAskClassCode    = "Informe o *código da sua turma* (está no convite ou no contrato da comissão)."
	msgAskName         = "Qual é o seu *nome completo*?"
	msgInvalidName     = "Por favor, informe seu nome completo (nome e sobrenome), sem números."
	msgAskEmail        = "Qual é o seu *e-mail*?"
	msgInvalidEmail    = "❌ E-mail inválido. Digite um e-mail no formato nome@dominio.com."
	msgAskCEP          = "Qual é o seu *CEP*?"
	msgInvalidCEP      = "❌ CEP inválido. O CEP deve ter 8 números, por exemplo 01310-100."
	msgAskAddress      = "Informe seu *endereço com número* (ex: Rua das Flores, 123)."
	msgInvalidAddress  = "Endereço muito curto. Informe a rua e o número (ex: Rua das Flores, 123)."
	msgAskNeighborhood = "Qual é o seu *bairro*?"
	msgInvalidBairro   = "Informe o nome do seu bairro."
	msgAskCity         = "Qual é a sua *cidade*?"
	msgInvalidCity     = "Informe o nome da sua cidade."
	msgAskState        = "Qual é o seu *estado*? Responda com a sigla (ex: SP)."
	msgInvalidState    = "❌ Estado inválido. Responda com uma das siglas abaixo."

	msgSupport      = "👤 Certo! Um atendente vai continuar seu atendimento por aqui em breve.\n\nSe quiser voltar ao menu, digite *menu*."
	msgClosed       = "Atendimento encerrado. Obrigado pelo contato! 😊\nQuando precisar, é só mandar uma mensagem."
	msgApology      = "😔 Desculpe, tivemos um problema ao processar sua solicitação. Tente novamente em alguns instantes."
	msgMissingData  = "⚠️ Dados não encontrados para continuar seu atendimento. Vamos recomeçar pelo menu."
	msgCreateFailed = "😔 Não foi possível concluir seu cadastro agora. Tente novamente mais tarde ou fale com um atendente."
	msgNoItems      = "No momento não há itens disponíveis para a sua turma. Um atendente pode te ajudar com isso."
	msgNoCustomer   = "Não encontramos cadastro com esse CPF."
	msgNoCharges    = "✅ Você não possui cobranças em aberto."
	msgCancelled    = "Pedido cancelado."
	msgPickItems    = "Digite os números dos itens desejados separados por vírgula (ex: 1,3)."
	msgPayMethod    = "Como você prefere pagar?"
)

var mainMenuRows = []messaging.ListRow{
	{ID: "1", Title: "Contratar pacote"},
	{ID: "2", Title: "Segunda via / financeiro"},
	{ID: "3", Title: "Pacotes e valores"},
	{ID: "4", Title: "Prazos de entrega"},
	{ID: "5", Title: "Endereço e horários"},
	{ID: "6", Title: "Falar com atendente"},
	{ID: "7", Title: "Encerrar atendimento"},
}

var existingClientButtons = []messaging.Button{
	{ID: "1", Label: "Contratar novo pacote"},
	{ID: "2", Label: "Segunda via"},
	{ID: "3", Label: "Voltar ao menu"},
}

var confirmationButtons = []messaging.Button{
	{ID: "1", Label: "Confirmar"},
	{ID: "2", Label: "Alterar"},
	{ID: "3", Label: "Cancelar"},
}

var paymentMethodList = messaging.List{
	Title:       "Forma de pagamento",
	ButtonLabel: "Escolher",
	Rows: []messaging.ListRow{
		{ID: "1", Title: "Boleto / PIX", Description: "Pagamento à vista"},
		{ID: "2", Title: "Carnê", Description: "Pagamento parcelado"},
	},
}

func join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// mainMenu shows the main menu, optionally after a message
func mainMenu(before string) *Transition {
	return &Transition{
		Step:    StepMainMenu,
		Message: join(before, msgMenu),
		List: &messaging.List{
			Title:       "Menu principal",
			ButtonLabel: "Ver opções",
			Rows:        mainMenuRows,
		},
	}
}

func apology() *Transition {
	return mainMenu(msgApology)
}

func missingData() *Transition {
	return mainMenu(msgMissingData)
}

func toSupport() *Transition {
	return &Transition{Step: StepSupport, Message: msgSupport}
}

func prompt(step Step, msg string) *Transition {
	return &Transition{Step: step, Message: msg}
}

func stateOptions() *messaging.OptionList {
	return &messaging.OptionList{Title: "Estados:", Options: ufs}
}

func catalogMessage(intro string, items []models.CatalogItem) string {
	var b strings.Builder
	b.WriteString("🛍️ *Itens disponíveis para a sua turma:*\n")
	for i, it := range items {
		fmt.Fprintf(&b, "\n%d. %s - %s", i+1, it.Name, FormatBRL(it.Value))
	}
	return join(intro, b.String(), msgPickItems)
}

func invalidSelectionMessage(invalid []string, n int) string {
	label := "Número inválido"
	if len(invalid) > 1 {
		label = "Números inválidos"
	}
	return fmt.Sprintf("❌ %s: %s. Escolha números entre 1 e %d.", label, strings.Join(invalid, ", "), n)
}

func orderSummary(pacote models.PacoteData) string {
	var b strings.Builder
	b.WriteString("🧾 *Resumo do pedido:*\n")
	for _, it := range pacote.ItensSelecionados {
		fmt.Fprintf(&b, "\n• %s - %s", it.Nome, FormatBRL(it.Valor))
	}
	fmt.Fprintf(&b, "\n\n*Total: %s*", FormatBRL(pacote.ValorTotal))
	return join(b.String(), "Deseja confirmar?")
}

func installmentOptions(total float64, max int) *messaging.OptionList {
	opts := make([]string, max)
	for i := 1; i <= max; i++ {
		opts[i-1] = strconv.Itoa(i) + "x " + FormatBRL(roundCents(total/float64(i)))
	}
	return &messaging.OptionList{Title: "Parcelas disponíveis:", Options: opts}
}

func invoiceMessage(inv *models.Invoice, total float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ *Pagamento gerado!*\n\nValor: %s", FormatBRL(total))
	if inv.DueDate != "" {
		fmt.Fprintf(&b, "\nVencimento: %s", formatDate(inv.DueDate))
	}
	if inv.Link != "" {
		fmt.Fprintf(&b, "\n\n🔗 Link: %s", inv.Link)
	}
	if inv.Barcode != "" {
		fmt.Fprintf(&b, "\n\n🏦 Código de barras:\n%s", inv.Barcode)
	}
	if inv.PixCode != "" {
		fmt.Fprintf(&b, "\n\n💠 PIX copia e cola:\n%s", inv.PixCode)
	}
	return b.String()
}

func installmentPlanMessage(plan *models.InstallmentPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ *Carnê gerado com %d parcela(s)!*\n", len(plan.Installments))
	for _, inst := range plan.Installments {
		fmt.Fprintf(&b, "\n%dª parcela - %s - vence em %s", inst.Number, FormatBRL(inst.Amount), formatDate(inst.DueDate))
		if inst.Link != "" {
			fmt.Fprintf(&b, "\n🔗 %s", inst.Link)
		}
		if inst.Barcode != "" {
			fmt.Fprintf(&b, "\n🏦 %s", inst.Barcode)
		}
	}
	return b.String()
}

func chargesMessage(charges []models.Charge) string {
	var b strings.Builder
	b.WriteString("📄 *Cobranças em aberto:*\n")
	for _, ch := range charges {
		fmt.Fprintf(&b, "\n• %s - vence em %s", FormatBRL(ch.Amount), formatDate(ch.DueDate))
		if ch.Link != "" {
			fmt.Fprintf(&b, "\n🔗 %s", ch.Link)
		}
	}
	return b.String()
}

// formatDate turns YYYY-MM-DD into DD/MM/YYYY and leaves anything else alone
func formatDate(iso string) string {
	if len(iso) >= 10 && iso[4] == '-' && iso[7] == '-' {
		return iso[8:10] + "/" + iso[5:7] + "/" + iso[:4]
	}
	return iso
}
