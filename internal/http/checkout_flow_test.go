package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestCheckoutRequiresSignInAndCart(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp := b.get("/checkout")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/auth?next=%2Fcheckout" {
		t.Fatalf("anonymous: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	b.signIn(customerEmail, seedPassword)
	resp = b.get("/checkout")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/cart" {
		t.Fatalf("empty cart: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestCheckoutPlacesOrderAndBlocksRepeat(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.signIn(customerEmail, seedPassword)

	body := b.placeOrder()
	if !strings.Contains(body, "6,499") {
		t.Fatalf("charged total missing from confirmation; body=%s", body)
	}

	var n int
	if err := env.db.Get(&n, `SELECT COUNT(*) FROM orders WHERE customer_email = ? AND total_amount = 6499`, customerEmail); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one order row, got %d", n)
	}

	// cart emptied
	if cart := readBody(b.get("/cart")); !strings.Contains(cart, "Your cart is empty") {
		t.Fatalf("cart not cleared; body=%s", cart)
	}

	// the order shows up for the customer
	if mine := readBody(b.get("/orders")); !strings.Contains(mine, "ORD-") {
		t.Fatalf("order missing from My orders; body=%s", mine)
	}

	// a second pre-order is refused
	resp := b.post("/cart", nil)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/?notice=ordered" {
		t.Fatalf("repeat add: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestCheckoutTamperedCartIsCleared(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.signIn(customerEmail, seedPassword)

	if resp := b.post("/cart", nil); resp.StatusCode != http.StatusFound {
		t.Fatalf("add to cart: got %d", resp.StatusCode)
	}
	if _, err := env.db.Exec(`UPDATE cart_items SET price = 1 WHERE session_id = ?`, b.jar["sid"]); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	resp := b.post("/checkout", shippingForm())
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/?notice=tampered" {
		t.Fatalf("expected tamper redirect, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	var n int
	if err := env.db.Get(&n, `SELECT COUNT(*) FROM cart_items WHERE session_id = ?`, b.jar["sid"]); err != nil {
		t.Fatalf("count cart: %v", err)
	}
	if n != 0 {
		t.Fatal("tampered cart was kept")
	}
	if err := env.db.Get(&n, `SELECT COUNT(*) FROM orders`); err != nil || n != 0 {
		t.Fatalf("no order expected, got %d (%v)", n, err)
	}
}

func TestPaymentDismissAndFailureKeepCart(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.signIn(customerEmail, seedPassword)

	id := b.openPayment()
	resp := b.post("/checkout/"+id+"/payment", url.Values{"outcome": {"dismiss"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/checkout" {
		t.Fatalf("dismiss: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	// the attempt is spent
	resp = b.post("/checkout/"+id+"/payment", url.Values{"outcome": {"success"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/checkout" {
		t.Fatalf("replayed attempt: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = b.post("/checkout", shippingForm())
	m := attemptPath.FindStringSubmatch(readBody(resp))
	if m == nil {
		t.Fatal("second payment form missing")
	}
	resp = b.post("/checkout/"+m[1]+"/payment", url.Values{
		"outcome":           {"failure"},
		"error_code":        {"BAD_REQUEST_ERROR"},
		"error_description": {"Card declined"},
	})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("failure: expected 402, got %d", resp.StatusCode)
	}
	if body := readBody(resp); !strings.Contains(body, "Card declined") {
		t.Fatalf("failure description missing; body=%s", body)
	}

	var n int
	if err := env.db.Get(&n, `SELECT COUNT(*) FROM cart_items WHERE session_id = ?`, b.jar["sid"]); err != nil || n != 1 {
		t.Fatalf("cart should survive failed payment, got %d (%v)", n, err)
	}
}

func TestPaymentAttemptBoundToBrowser(t *testing.T) {
	env := newTestEnv(t)
	owner := env.browser(t)
	owner.signIn(customerEmail, seedPassword)
	id := owner.openPayment()

	thief := env.browser(t)
	thief.signIn(opsEmail, seedPassword)
	resp := thief.post("/checkout/"+id+"/payment", url.Values{"outcome": {"success"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/checkout" {
		t.Fatalf("foreign attempt: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	// still usable by its owner
	resp = owner.post("/checkout/"+id+"/payment", url.Values{"outcome": {"success"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner payment: got %d", resp.StatusCode)
	}
}

func TestStoredOrderKeepsShippingAcrossRequests(t *testing.T) {
	env := newTestEnv(t)
	owner := env.browser(t)
	owner.signIn(customerEmail, seedPassword)
	id := owner.openPayment()

	// other traffic between the shipping form and the payment reuses request buffers
	other := env.browser(t)
	other.signIn(opsEmail, seedPassword)
	other.post("/cart", nil)
	form := shippingForm()
	form.Set("firstName", "Zzzzzzzzzz")
	form.Set("address", "99 Something Much Longer Street, Block Q")
	form.Set("city", "Thiruvananthapuram")
	other.post("/checkout", form)
	for i := 0; i < 3; i++ {
		other.get("/orders")
	}

	resp := owner.post("/checkout/"+id+"/payment", url.Values{"outcome": {"success"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner payment: got %d", resp.StatusCode)
	}

	var row struct {
		Name    string `db:"customer_name"`
		Phone   string `db:"customer_phone"`
		Address string `db:"shipping_address"`
		City    string `db:"city"`
		State   string `db:"state"`
		Zip     string `db:"zip_code"`
		Country string `db:"country"`
	}
	err := env.db.Get(&row, `SELECT customer_name, customer_phone, shipping_address, city, state, zip_code, country
		FROM orders WHERE customer_email = ?`, customerEmail)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	want := shippingForm()
	if row.Name != "Casey Rao" || row.Phone != want.Get("phone") || row.Address != want.Get("address") ||
		row.City != want.Get("city") || row.State != want.Get("state") || row.Zip != want.Get("zip") ||
		row.Country != want.Get("country") {
		t.Fatalf("stored shipping differs from the submitted form: %+v", row)
	}
}
