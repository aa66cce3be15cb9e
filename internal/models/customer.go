package models

// Customer document field names.
const (
	FieldNome        = "nome"
	FieldNomeUpper   = "nomeUpper"
	FieldEndereco    = "endereco"
	FieldIsentoFrete = "isentoFrete"
	FieldCNPJ        = "cnpj"
	FieldIE          = "ie"
	FieldCEP         = "cep"
	FieldContato     = "contato"
	FieldCompras     = "compras"
)

// Customer is keyed within a tenant by NomeUpper.
type Customer struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Nome        string `json:"nome"`
	NomeUpper   string `json:"nomeUpper"`
	Endereco    string `json:"endereco"`
	IsentoFrete bool   `json:"isentoFrete"` // Exempt from delivery fee
	CNPJ        string `json:"cnpj"`
	IE          string `json:"ie"`
	CEP         string `json:"cep"`
	Contato     string `json:"contato"`
	Compras     int    `json:"compras"`
	Audit
	Extra Fields `json:"-"`
}

// CustomerExtras are the optional tax and contact attributes of a customer.
type CustomerExtras struct {
	CNPJ    string
	IE      string
	CEP     string
	Contato string
}

var customerKeys = map[string]bool{
	FieldNome:        true,
	FieldNomeUpper:   true,
	FieldEndereco:    true,
	FieldIsentoFrete: true,
	FieldCNPJ:        true,
	FieldIE:          true,
	FieldCEP:         true,
	FieldContato:     true,
	FieldCompras:     true,
}

// CustomerFromFields lifts a stored document into a Customer.
func CustomerFromFields(id string, f Fields) *Customer {
	c := &Customer{
		ID:          id,
		TenantID:    f.String(FieldTenantID),
		Nome:        f.String(FieldNome),
		NomeUpper:   f.String(FieldNomeUpper),
		Endereco:    f.String(FieldEndereco),
		IsentoFrete: f.Bool(FieldIsentoFrete),
		CNPJ:        f.String(FieldCNPJ),
		IE:          f.String(FieldIE),
		CEP:         f.String(FieldCEP),
		Contato:     f.String(FieldContato),
		Compras:     f.Int(FieldCompras),
		Audit:       auditFromFields(f),
		Extra:       Fields{},
	}
	for k, v := range f {
		if customerKeys[k] || auditKeys[k] {
			continue
		}
		c.Extra[k] = v
	}
	return c
}
