package validate

import "testing"

func TestPassword(t *testing.T) {
	cases := map[string]bool{
		"Passw0rd!":             true,
		"passw0rd!":             false,
		"PASSW0RD!":             false,
		"Password!":             false,
		"Passw0rd":              false,
		"P0!a":                  false,
		"Passw0rd!Passw0rd!Pa1": false,
	}
	for pw, want := range cases {
		if got := Password(pw); got != want {
			t.Errorf("Password(%q) = %v, want %v", pw, got, want)
		}
	}
}

func TestEmailAndQ(t *testing.T) {
	if e, ok := Email("  alice@techshop.test "); !ok || e != "alice@techshop.test" {
		t.Errorf("Email trimmed = %q %v", e, ok)
	}
	if _, ok := Email("not-an-email"); ok {
		t.Error("accepted bad email")
	}
	if q, ok := Q("  gaming laptop "); !ok || q != "gaming laptop" {
		t.Errorf("Q = %q %v", q, ok)
	}
	if _, ok := Q("<script>"); ok {
		t.Error("accepted markup in query")
	}
	if _, ok := Q("   "); ok {
		t.Error("accepted blank query")
	}
}

func TestIDAndInt(t *testing.T) {
	if _, ok := ID("p-aero14"); !ok {
		t.Error("rejected valid id")
	}
	if _, ok := ID("p aero"); ok {
		t.Error("accepted id with space")
	}
	if Int("7", 1) != 7 || Int("x", 1) != 1 || Int("", 3) != 3 {
		t.Error("Int fallback mismatch")
	}
}

func TestStruct(t *testing.T) {
	type req struct {
		ProductID string `json:"productId" validate:"required,resid"`
		Quantity  int    `json:"quantity" validate:"required,min=1"`
	}
	if d := Struct(req{ProductID: "p-1", Quantity: 1}); d != nil {
		t.Fatalf("unexpected details %v", d)
	}
	d := Struct(req{ProductID: "bad id"})
	if d["productId"] != "productId is not a valid identifier" {
		t.Errorf("productId: %q", d["productId"])
	}
	if d["quantity"] != "quantity is required" {
		t.Errorf("quantity: %q", d["quantity"])
	}
}
