package form

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shockerli/cvt"

	"github.com/garyjia/voucher-workflow/internal/domain/entity"
)

type commonFields struct {
	Type         entity.VoucherType `json:"type"`
	Organization string             `json:"organization"`
	Branch       string             `json:"branch"`
	Amount       string             `json:"amount"`
}

// itemizedLineWire accepts line amounts as numbers or numeric strings
type itemizedLineWire struct {
	entity.ItemizedLine
	Amount interface{} `json:"amount"`
}

type itemizedWire struct {
	ForWhom string             `json:"forWhom"`
	PinName string             `json:"pinName"`
	Lines   []itemizedLineWire `json:"details"`
}

// Decode validates a submitted entry form and converts it into a voucher input.
// Itemized vouchers get their amount from the sum of line amounts.
func (r *Registry) Decode(raw []byte) (*entity.VoucherInput, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, entity.NewValidationError("", "body is not valid JSON: %v", err)
	}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return nil, entity.NewValidationError("", "body must be a JSON object")
	}
	typ, err := cvt.StringE(obj["type"])
	if err != nil || strings.TrimSpace(typ) == "" {
		return nil, entity.NewValidationError("type", "voucher type is required")
	}

	t := entity.VoucherType(strings.TrimSpace(typ))
	if err := r.Validate(t, doc); err != nil {
		return nil, err
	}

	var common commonFields
	if err := json.Unmarshal(raw, &common); err != nil {
		return nil, entity.NewValidationError("", "%v", err)
	}
	in := &entity.VoucherInput{
		Type:         t,
		Organization: strings.TrimSpace(common.Organization),
		Branch:       strings.TrimSpace(common.Branch),
	}

	switch t {
	case entity.TypePettyCashSlip:
		var d entity.PettyCashDetails
		err = json.Unmarshal(raw, &d)
		in.Variant = d
	case entity.TypeCreditVoucher:
		var d entity.CreditDetails
		err = json.Unmarshal(raw, &d)
		if d.PaymentOption == entity.PaymentOptionCash {
			d.BankName = ""
		}
		in.Variant = d
	case entity.TypeDebitVoucher:
		var d entity.DebitDetails
		err = json.Unmarshal(raw, &d)
		in.Variant = d
	case entity.TypeFoodVoucher, entity.TypeConveyanceVoucher:
		var d entity.ItemizedDetails
		d, common.Amount, err = decodeItemized(raw)
		in.Variant = d
	default:
		return nil, &entity.UnsupportedVariantError{Type: t, Context: "entry form"}
	}
	if err != nil {
		return nil, err
	}

	amount, err := entity.NormalizeAmount(common.Amount)
	if err != nil {
		return nil, entity.NewValidationError("amount", "%v", err)
	}
	in.Amount = amount
	return in, nil
}

func decodeItemized(raw []byte) (entity.ItemizedDetails, string, error) {
	var w itemizedWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return entity.ItemizedDetails{}, "", entity.NewValidationError("details", "%v", err)
	}

	d := entity.ItemizedDetails{ForWhom: w.ForWhom, PinName: w.PinName}
	amounts := make([]string, 0, len(w.Lines))
	for i, l := range w.Lines {
		s, err := cvt.StringE(l.Amount)
		if err != nil {
			return entity.ItemizedDetails{}, "", entity.NewValidationError(fmt.Sprintf("details[%d].amount", i), "%v", err)
		}
		a, err := entity.NormalizeAmount(s)
		if err != nil {
			return entity.ItemizedDetails{}, "", entity.NewValidationError(fmt.Sprintf("details[%d].amount", i), "%v", err)
		}
		line := l.ItemizedLine
		line.Amount = a
		d.Lines = append(d.Lines, line)
		amounts = append(amounts, a)
	}

	total, err := entity.SumAmounts(amounts)
	if err != nil {
		return entity.ItemizedDetails{}, "", entity.NewValidationError("details", "%v", err)
	}
	return d, total, nil
}
