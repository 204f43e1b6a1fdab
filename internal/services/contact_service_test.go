package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitekit/internal/rest"
	api "sitekit/pkg/contracts/api/v1"
)

func validContact() api.ContactRequest {
	return api.ContactRequest{
		Name:    "Ada",
		Email:   "ada@example.com",
		Message: "Build me a site",
		Budget:  decimal.RequireFromString("1500.50"),
	}
}

func TestContactSubmit(t *testing.T) {
	ctx := context.Background()
	svc := NewContactService(testLogger())

	msg, err := svc.Submit(ctx, validContact())
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.True(t, msg.Budget.Equal(decimal.RequireFromString("1500.50")))
}

func TestContactSubmitValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewContactService(testLogger())

	tests := []struct {
		name      string
		mutate    func(*api.ContactRequest)
		wantField string
	}{
		{
			name:      "missing name",
			mutate:    func(r *api.ContactRequest) { r.Name = "" },
			wantField: "name",
		},
		{
			name:      "bad email",
			mutate:    func(r *api.ContactRequest) { r.Email = "not-an-email" },
			wantField: "email",
		},
		{
			name:      "missing message",
			mutate:    func(r *api.ContactRequest) { r.Message = "" },
			wantField: "message",
		},
		{
			name:      "negative budget",
			mutate:    func(r *api.ContactRequest) { r.Budget = decimal.NewFromInt(-1) },
			wantField: "budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validContact()
			tt.mutate(&req)

			_, err := svc.Submit(ctx, req)
			var verr rest.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr, tt.wantField)
		})
	}
}

func TestContactListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := NewContactService(testLogger())

	first := validContact()
	second := validContact()
	second.Name = "Grace"

	_, err := svc.Submit(ctx, first)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, second)
	require.NoError(t, err)

	list := svc.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "Grace", list[0].Name)
	assert.Equal(t, "Ada", list[1].Name)
}

func TestContactTotalBudget(t *testing.T) {
	ctx := context.Background()
	svc := NewContactService(testLogger())

	a := validContact()
	a.Budget = decimal.RequireFromString("0.10")
	b := validContact()
	b.Budget = decimal.RequireFromString("0.20")

	_, err := svc.Submit(ctx, a)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, b)
	require.NoError(t, err)

	// 0.1 + 0.2 is exactly 0.3 in decimal arithmetic.
	assert.True(t, svc.TotalBudget(ctx).Equal(decimal.RequireFromString("0.30")))
}
