package view

import (
	"github.com/garyjia/voucher-workflow/internal/application/workflow"
	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

// Field is one read-only label/value pair. Key is looked up by the i18n layer.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Detail is what a stage shows for a selected voucher
type Detail struct {
	VoucherNumber string             `json:"voucherNumber"`
	Type          entity.VoucherType `json:"type"`
	Status        entity.Status      `json:"status"`
	Stage         workflow.Stage     `json:"stage"`
	Common        []Field            `json:"common"`
	Variant       []Field            `json:"variant,omitempty"`
	Lines         [][]Field          `json:"lines,omitempty"`
	Payment       []Field            `json:"payment,omitempty"`
	Actions       []workflow.Action  `json:"actions,omitempty"`

	// Supported is false when the stage has no renderer for the type;
	// Notice then carries the not-supported message
	Supported bool           `json:"supported"`
	Notice    *entity.Notice `json:"notice,omitempty"`
}

// RenderDetail builds the read-only view of v for a stage. It never fails:
// types without a render path, or excluded from the stage, get the fallback.
func RenderDetail(stage workflow.StageConfig, v *entity.Voucher) Detail {
	d := Detail{
		VoucherNumber: v.VoucherNumber,
		Type:          v.Type,
		Status:        v.Status,
		Stage:         stage.Stage,
		Common:        commonFields(v),
		Supported:     true,
	}

	if stage.Excludes(v.Type) {
		return unsupported(d, &entity.UnsupportedVariantError{Type: v.Type, Context: string(stage.Stage) + " stage"})
	}

	switch p := v.Variant.(type) {
	case entity.PettyCashDetails:
		d.Variant = []Field{
			{"reason", p.Reason},
			{"reconciliationDate", p.ReconciliationDate},
		}
	case entity.CreditDetails:
		d.Variant = []Field{
			{"date", p.Date},
			{"fromWhom", p.FromWhom},
			{"description", p.Description},
			{"paymentOption", string(p.PaymentOption)},
		}
		if p.PaymentOption == entity.PaymentOptionBank {
			d.Variant = append(d.Variant, Field{"bankName", p.BankName})
		}
	case entity.DebitDetails:
		d.Variant = []Field{{"paidTo", p.PaidTo}}
		for _, l := range p.Lines {
			d.Lines = append(d.Lines, []Field{
				{"expenseDate", l.ExpenseDate},
				{"description", l.Description},
				{"purpose", l.Purpose},
			})
		}
	case entity.ItemizedDetails:
		d.Variant = []Field{
			{"forWhom", p.ForWhom},
			{"pinName", p.PinName},
		}
		dateKey := "foodDate"
		if v.Type == entity.TypeConveyanceVoucher {
			dateKey = "travelDate"
		}
		for _, l := range p.Lines {
			row := []Field{{dateKey, l.Date}}
			row = appendIfSet(row, "from", l.From)
			row = appendIfSet(row, "to", l.To)
			row = appendIfSet(row, "vehicle", l.Vehicle)
			row = appendIfSet(row, "description", l.Description)
			row = append(row, Field{"purpose", l.Purpose}, Field{"amount", l.Amount})
			d.Lines = append(d.Lines, row)
		}
	default:
		return unsupported(d, &entity.UnsupportedVariantError{Type: v.Type, Context: "detail view"})
	}

	d.Payment = paymentFields(v)
	d.Actions = stage.Actions
	return d
}

func commonFields(v *entity.Voucher) []Field {
	fields := []Field{
		{"voucherNumber", v.VoucherNumber},
		{"submissionDate", v.SubmissionDate},
		{"organization", v.Organization},
		{"branch", v.Branch},
		{"type", string(v.Type)},
		{"amount", v.Amount},
		{"status", string(v.Status)},
		{"createdBy", userLine(&v.CreatorInfo)},
	}
	if !v.ApproverInfo.IsZero() {
		fields = append(fields, Field{"approvedBy", userLine(v.ApproverInfo)})
	}
	if !v.PayerInfo.IsZero() {
		fields = append(fields, Field{"paidBy", userLine(v.PayerInfo)})
	}
	if v.ClosingReason != "" {
		fields = append(fields, Field{"closingReason", v.ClosingReason})
	}
	return fields
}

func paymentFields(v *entity.Voucher) []Field {
	var out []Field
	out = appendIfSet(out, "cashAmount", v.CashAmount)
	out = appendIfSet(out, "pettyCashAmount", v.PettyCashAmount)
	out = appendIfSet(out, "paymentBranch", v.PaymentBranch)
	out = appendIfSet(out, "headOfAccount", v.HeadOfAccount)
	out = appendIfSet(out, "account", v.Account)
	return out
}

func appendIfSet(fields []Field, key, value string) []Field {
	if value == "" {
		return fields
	}
	return append(fields, Field{key, value})
}

func userLine(u *entity.UserInfo) string {
	if u.IsZero() {
		return ""
	}
	s := u.Name + " (" + u.PIN + ")"
	if u.Designation != "" {
		s += ", " + u.Designation
	}
	return s
}

func unsupported(d Detail, err *entity.UnsupportedVariantError) Detail {
	d.Supported = false
	d.Notice = &entity.Notice{
		Kind:          entity.NoticeUnsupported,
		Key:           entity.NoticeKeyNotSupported,
		VoucherNumber: d.VoucherNumber,
		Detail:        err.Error(),
		Params:        map[string]string{"type": string(d.Type), "context": err.Context},
	}
	return d
}
