package redisstore

import "github.com/garyjia/voucher-workflow/internal/domain/entity"

// voucherList is the stored array in insertion order
type voucherList []*entity.Voucher

func (l voucherList) last() *entity.Voucher {
	if len(l) == 0 {
		return nil
	}
	return l[len(l)-1].Clone()
}

func (l voucherList) add(v *entity.Voucher) (voucherList, error) {
	for _, existing := range l {
		if existing.VoucherNumber == v.VoucherNumber {
			return l, entity.ErrDuplicateNumber
		}
	}
	return append(l, v.Clone()), nil
}

func (l voucherList) get(number string) (*entity.Voucher, error) {
	for _, v := range l {
		if v.VoucherNumber == number {
			return v.Clone(), nil
		}
	}
	return nil, &entity.NotFoundError{VoucherNumber: number}
}

// replace swaps in v if the stored version is still expectedVersion
func (l voucherList) replace(v *entity.Voucher, expectedVersion int64) error {
	for i, stored := range l {
		if stored.VoucherNumber != v.VoucherNumber {
			continue
		}
		if stored.Version != expectedVersion {
			return entity.ErrConcurrentUpdate
		}
		l[i] = v.Clone()
		return nil
	}
	return &entity.NotFoundError{VoucherNumber: v.VoucherNumber}
}

func (l voucherList) filter(keep func(*entity.Voucher) bool) []*entity.Voucher {
	out := []*entity.Voucher{}
	for _, v := range l {
		if keep(v) {
			out = append(out, v.Clone())
		}
	}
	return out
}
