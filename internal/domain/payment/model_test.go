package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kinderbill/kinderbill/internal/types"
)

func TestResolveInvoiceStatus(t *testing.T) {
	due := decimal.NewFromInt(350)

	tests := []struct {
		name      string
		totalPaid decimal.Decimal
		amountDue decimal.Decimal
		want      types.InvoicePaymentStatus
	}{
		{"nothing paid", decimal.Zero, due, types.InvoicePaymentStatusOpen},
		{"partial payment", decimal.NewFromInt(150), due, types.InvoicePaymentStatusPartial},
		{"exact payment", due, due, types.InvoicePaymentStatusPaid},
		{"overpayment", decimal.NewFromInt(400), due, types.InvoicePaymentStatusPaid},
		{"unknown amount due stays partial", decimal.NewFromInt(150), decimal.Zero, types.InvoicePaymentStatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveInvoiceStatus(tt.totalPaid, tt.amountDue))
		})
	}
}
