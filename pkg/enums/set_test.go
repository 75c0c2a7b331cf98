package enums

import "testing"

func TestSetParse(t *testing.T) {
	s := newSet("colour", "RED", "GREEN")
	if v, err := s.parse("GREEN"); err != nil || v != "GREEN" {
		t.Fatalf("parse GREEN: %q, %v", v, err)
	}
	for _, raw := range []string{"", "green", " GREEN", "BLUE"} {
		if _, err := s.parse(raw); err == nil {
			t.Fatalf("%q should be rejected", raw)
		}
	}
	if _, err := s.parse("BLUE"); err == nil || err.Error() != `invalid colour "BLUE"` {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestSetAllIsACopy(t *testing.T) {
	got := OrderStatuses()
	got[0] = "TAMPERED"
	if OrderStatuses()[0] != OrderStatusPendingPayment {
		t.Fatal("callers must not be able to edit the set")
	}
}

func TestEveryDeclaredValueParses(t *testing.T) {
	check := func(kind string, values []string, parse func(string) error) {
		t.Helper()
		if len(values) == 0 {
			t.Fatalf("%s: empty set", kind)
		}
		for _, v := range values {
			if err := parse(v); err != nil {
				t.Fatalf("%s %q: %v", kind, v, err)
			}
		}
	}
	check("attribute type", asStrings(attributeTypes.values), func(v string) error { _, err := ParseAttributeType(v); return err })
	check("inquiry status", asStrings(inquiryStatuses.values), func(v string) error { _, err := ParseInquiryStatus(v); return err })
	check("notification type", asStrings(notificationTypes.values), func(v string) error { _, err := ParseNotificationType(v); return err })
	check("payment method", asStrings(paymentMethods.values), func(v string) error { _, err := ParsePaymentMethod(v); return err })
	check("payment status", asStrings(paymentStatuses.values), func(v string) error { _, err := ParsePaymentStatus(v); return err })
	check("product status", asStrings(productStatuses.values), func(v string) error { _, err := ParseProductStatus(v); return err })
	check("reference type", asStrings(referenceTypes.values), func(v string) error { _, err := ParseReferenceType(v); return err })
	check("user role", asStrings(userRoles.values), func(v string) error { _, err := ParseUserRole(v); return err })
}

func asStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
