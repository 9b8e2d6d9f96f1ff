package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/frogcafe/internal/domain"
)

func TestOrder_HasToad(t *testing.T) {
	toad := int64(3)
	withToad := domain.Order{ID: 1, ToadID: &toad}
	withoutToad := domain.Order{ID: 2}

	if !withToad.HasToad() {
		t.Fatal("expected order with toad")
	}
	if withoutToad.HasToad() {
		t.Fatal("expected order without toad")
	}
}

func TestOrder_BelongsTo(t *testing.T) {
	order := domain.Order{ID: 7, UserID: 10}

	cases := []struct {
		name   string
		caller domain.Caller
		want   bool
	}{
		{name: "owner", caller: domain.Caller{UserID: 10, Role: domain.RoleCustomer}, want: true},
		{name: "stranger", caller: domain.Caller{UserID: 11, Role: domain.RoleCustomer}, want: false},
		{name: "admin", caller: domain.Caller{UserID: 99, Role: domain.RoleAdmin}, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := order.BelongsTo(tc.caller); got != tc.want {
				t.Fatalf("BelongsTo() = %v, want %v", got, tc.want)
			}
		})
	}
}
