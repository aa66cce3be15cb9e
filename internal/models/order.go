package models

import (
	"encoding/json"
)

// Order document field names.
const (
	FieldCliente        = "cliente"
	FieldDataEntregaISO = "dataEntregaISO"
	FieldHoraEntrega    = "horaEntrega"
	FieldEntrega        = "entrega"
	FieldEntregaTipo    = "tipo"
)

// OrderFilter holds the search criteria of the orders screen. Only the date
// bounds reach the store query; the rest are applied locally.
type OrderFilter struct {
	DateFromISO          string `json:"dateFromISO,omitempty"`          // Inclusive lower bound on dataEntregaISO
	DateToISO            string `json:"dateToISO,omitempty"`            // Inclusive upper bound on dataEntregaISO
	CustomerNameContains string `json:"customerNameContains,omitempty"` // Case-insensitive substring of cliente
	DeliveryType         string `json:"deliveryType,omitempty"`         // Case-insensitive exact entrega.tipo
	HourFrom             string `json:"hourFrom,omitempty"`             // Inclusive lower bound on horaEntrega
	HourTo               string `json:"hourTo,omitempty"`               // Inclusive upper bound on horaEntrega
	MaxResults           int    `json:"maxResults,omitempty"`           // Store query cap (default: 1000)
}

// HasDateRange reports whether either date bound is set.
func (f *OrderFilter) HasDateRange() bool {
	return f.DateFromISO != "" || f.DateToISO != ""
}

// Delivery describes how an order is handed over.
type Delivery struct {
	Tipo  string `json:"tipo"`
	Extra Fields `json:"-"`
}

type Order struct {
	ID             string   `json:"id"`
	TenantID       string   `json:"tenantId"`
	Cliente        string   `json:"cliente"`
	DataEntregaISO string   `json:"dataEntregaISO"`
	HoraEntrega    string   `json:"horaEntrega"`
	Entrega        Delivery `json:"entrega"`
	Audit
	Extra Fields `json:"-"` // Line items, totals and any other business field
}

var orderKeys = map[string]bool{
	FieldCliente:        true,
	FieldDataEntregaISO: true,
	FieldHoraEntrega:    true,
	FieldEntrega:        true,
}

// OrderFromFields lifts a stored document into an Order.
func OrderFromFields(id string, f Fields) *Order {
	o := &Order{
		ID:             id,
		TenantID:       f.String(FieldTenantID),
		Cliente:        f.String(FieldCliente),
		DataEntregaISO: f.String(FieldDataEntregaISO),
		HoraEntrega:    f.String(FieldHoraEntrega),
		Audit:          auditFromFields(f),
		Extra:          Fields{},
	}
	if entrega := f.Map(FieldEntrega); entrega != nil {
		o.Entrega.Tipo = entrega.String(FieldEntregaTipo)
		for k, v := range entrega {
			if k == FieldEntregaTipo {
				continue
			}
			if o.Entrega.Extra == nil {
				o.Entrega.Extra = Fields{}
			}
			o.Entrega.Extra[k] = v
		}
	}
	for k, v := range f {
		if orderKeys[k] || auditKeys[k] {
			continue
		}
		o.Extra[k] = v
	}
	return o
}

// Fields flattens the order back into document fields, without the id.
func (o *Order) Fields() Fields {
	f := Fields{}
	for k, v := range o.Extra {
		f[k] = v
	}
	entrega := Fields{FieldEntregaTipo: o.Entrega.Tipo}
	for k, v := range o.Entrega.Extra {
		entrega[k] = v
	}
	f[FieldEntrega] = entrega
	f[FieldTenantID] = o.TenantID
	f[FieldCliente] = o.Cliente
	f[FieldDataEntregaISO] = o.DataEntregaISO
	f[FieldHoraEntrega] = o.HoraEntrega
	o.Audit.put(f)
	return f
}

// Merge shallow-merges patch into the order in place.
func (o *Order) Merge(patch Fields) {
	f := o.Fields()
	for k, v := range patch {
		f[k] = v
	}
	*o = *OrderFromFields(o.ID, f)
}

// MarshalJSON emits the flat record shape consumed by presentation and export.
func (o Order) MarshalJSON() ([]byte, error) {
	f := o.Fields()
	f["id"] = o.ID
	return json.Marshal(map[string]interface{}(f))
}
