package models

// SessionData holds everything collected across turns of a conversation.
// It is never replaced as a whole: every update goes through Apply.
type SessionData struct {
	Cliente         *ClienteData `json:"clienteData,omitempty"`
	Pacote          *PacoteData  `json:"pacoteData,omitempty"`
	TentativasTurma int          `json:"tentativasTurma,omitempty"`
}

// ClienteData is the customer record being collected (or found) during a contract flow
type ClienteData struct {
	CPF         string `json:"cpf,omitempty"`
	Nome        string `json:"nome,omitempty"`
	Email       string `json:"email,omitempty"`
	CEP         string `json:"cep,omitempty"`
	Endereco    string `json:"endereco,omitempty"` // "street, number" as typed
	Bairro      string `json:"bairro,omitempty"`
	Cidade      string `json:"cidade,omitempty"`
	Estado      string `json:"estado,omitempty"`
	TurmaID     string `json:"turmaId,omitempty"`
	TurmaNome   string `json:"turmaNome,omitempty"`
	CodigoTurma string `json:"codigoTurma,omitempty"`
	ClienteID   string `json:"clienteId,omitempty"`
}

// PacoteData is the package being assembled
type PacoteData struct {
	ItensSelecionados []SelectedItem `json:"itensSelecionados,omitempty"`
	ValorTotal        float64        `json:"valorTotal,omitempty"`
	FormaPagamento    string         `json:"formaPagamento,omitempty"`
	Parcelas          int            `json:"parcelas,omitempty"`
	MaxParcelas       int            `json:"maxParcelas,omitempty"`

	// Older album-based flow, still present on long-lived sessions.
	Album  string   `json:"album,omitempty"`
	Fotos  int      `json:"fotos,omitempty"`
	Extras []string `json:"extras,omitempty"`
}

// SelectedItem is a catalog item resolved from the customer's selection
type SelectedItem struct {
	ID    string  `json:"id"`
	Nome  string  `json:"nome"`
	Valor float64 `json:"valor"`
}

// DataPatch describes a partial write to SessionData.
// Only the fields set in Cliente/Pacote are written; Clear* drop a sub-record
// before the patch is applied and are reserved for starting a fresh flow.
type DataPatch struct {
	Cliente         *ClienteData
	Pacote          *PacoteData
	TentativasTurma *int
	ClearCliente    bool
	ClearPacote     bool
}

// IsEmpty reports whether applying the patch would change nothing
func (p DataPatch) IsEmpty() bool {
	return p.Cliente == nil && p.Pacote == nil && p.TentativasTurma == nil && !p.ClearCliente && !p.ClearPacote
}

// Attempts is a helper for building a patch that sets the cohort attempt counter
func Attempts(n int) *int {
	return &n
}

// Apply merges the patch into a copy of d and returns it
func (d SessionData) Apply(p DataPatch) SessionData {
	out := d.Clone()

	if p.ClearCliente {
		out.Cliente = nil
	}
	if p.ClearPacote {
		out.Pacote = nil
	}
	if p.TentativasTurma != nil {
		out.TentativasTurma = *p.TentativasTurma
	}
	if p.Cliente != nil {
		if out.Cliente == nil {
			out.Cliente = &ClienteData{}
		}
		out.Cliente.merge(*p.Cliente)
	}
	if p.Pacote != nil {
		if out.Pacote == nil {
			out.Pacote = &PacoteData{}
		}
		out.Pacote.merge(*p.Pacote)
	}
	return out
}

// Clone deep-copies the data
func (d SessionData) Clone() SessionData {
	out := SessionData{TentativasTurma: d.TentativasTurma}
	if d.Cliente != nil {
		c := *d.Cliente
		out.Cliente = &c
	}
	if d.Pacote != nil {
		p := *d.Pacote
		if d.Pacote.ItensSelecionados != nil {
			p.ItensSelecionados = append([]SelectedItem(nil), d.Pacote.ItensSelecionados...)
		}
		if d.Pacote.Extras != nil {
			p.Extras = append([]string(nil), d.Pacote.Extras...)
		}
		out.Pacote = &p
	}
	return out
}

// ClienteOrEmpty never returns nil
func (d SessionData) ClienteOrEmpty() ClienteData {
	if d.Cliente == nil {
		return ClienteData{}
	}
	return *d.Cliente
}

// PacoteOrEmpty never returns nil
func (d SessionData) PacoteOrEmpty() PacoteData {
	if d.Pacote == nil {
		return PacoteData{}
	}
	return *d.Pacote
}

func (c *ClienteData) merge(src ClienteData) {
	setString(&c.CPF, src.CPF)
	setString(&c.Nome, src.Nome)
	setString(&c.Email, src.Email)
	setString(&c.CEP, src.CEP)
	setString(&c.Endereco, src.Endereco)
	setString(&c.Bairro, src.Bairro)
	setString(&c.Cidade, src.Cidade)
	setString(&c.Estado, src.Estado)
	setString(&c.TurmaID, src.TurmaID)
	setString(&c.TurmaNome, src.TurmaNome)
	setString(&c.CodigoTurma, src.CodigoTurma)
	setString(&c.ClienteID, src.ClienteID)
}

func (p *PacoteData) merge(src PacoteData) {
	if src.ItensSelecionados != nil {
		p.ItensSelecionados = append([]SelectedItem(nil), src.ItensSelecionados...)
	}
	if src.ValorTotal != 0 {
		p.ValorTotal = src.ValorTotal
	}
	setString(&p.FormaPagamento, src.FormaPagamento)
	if src.Parcelas != 0 {
		p.Parcelas = src.Parcelas
	}
	if src.MaxParcelas != 0 {
		p.MaxParcelas = src.MaxParcelas
	}
	setString(&p.Album, src.Album)
	if src.Fotos != 0 {
		p.Fotos = src.Fotos
	}
	if src.Extras != nil {
		p.Extras = append([]string(nil), src.Extras...)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
