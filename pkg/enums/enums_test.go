package enums

import "testing"

func TestParsePaymentStrategy(t *testing.T) {
	for _, raw := range []string{"default", "fallback"} {
		got, err := ParsePaymentStrategy(raw)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		if !got.IsValid() || string(got) != raw {
			t.Fatalf("unexpected strategy %q", got)
		}
	}

	if _, err := ParsePaymentStrategy("primary"); err == nil {
		t.Fatal("expected unknown strategy to fail")
	}
	if PaymentStrategyUnset.IsValid() {
		t.Fatal("unset strategy must not be persisted")
	}
	if PaymentStrategyUnset.String() != "unset" {
		t.Fatalf("unexpected unset label %q", PaymentStrategyUnset.String())
	}
}

func TestPaymentStrategiesOrder(t *testing.T) {
	got := PaymentStrategies()
	if len(got) != 2 || got[0] != PaymentStrategyDefault || got[1] != PaymentStrategyFallback {
		t.Fatalf("unexpected strategies %v", got)
	}
	got[0] = PaymentStrategyFallback
	if PaymentStrategies()[0] != PaymentStrategyDefault {
		t.Fatal("PaymentStrategies must return a copy")
	}
}

func TestParseStateKey(t *testing.T) {
	got, err := ParseStateKey("default_payment_processor_status")
	if err != nil || got != StateKeyDefaultProcessorStatus {
		t.Fatalf("unexpected result %q/%v", got, err)
	}
	if _, err := ParseStateKey("fallback_payment_processor_status"); err == nil {
		t.Fatal("expected unknown state key to fail")
	}
	if StateKey("").IsValid() {
		t.Fatal("empty state key must be invalid")
	}
}
