//go:build integration

package integration

import (
	"net/http"
	"sync"
	"testing"
)

// Concurrent adds for the same (owner, product) must collapse into a single
// cart entry whose quantity is the sum of all requests, with none lost.
func TestConcurrentAddsMergeIntoOneEntry(t *testing.T) {
	clearCart(t)

	quantities := []int{1, 2, 3, 1, 2, 3, 1, 2}
	want := 0
	for _, q := range quantities {
		want += q
	}

	statuses := make([]int, len(quantities))
	var wg sync.WaitGroup
	for i, qty := range quantities {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := doPostAuth(t, "/api/cart/items", addItemRequest{ProductID: 5, Quantity: qty})
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}()
	}
	wg.Wait()

	for i, code := range statuses {
		if code != http.StatusOK {
			t.Errorf("add %d: expected 200, got %d", i, code)
		}
	}

	list := doGetAuth(t, "/api/cart")
	defer list.Body.Close()
	cart := decodeJSON[cartResponse](t, list)

	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 merged entry, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != want {
		t.Errorf("quantity: got %d, want %d", cart.Items[0].Quantity, want)
	}
}

// Concurrent checkouts of one cart must produce exactly one order: the row
// locks serialize them, the winner drains the cart and every loser sees it
// empty.
func TestConcurrentCheckoutsCreateOneOrder(t *testing.T) {
	clearCart(t)
	clearOrders(t)

	add := doPostAuth(t, "/api/cart/items", addItemRequest{ProductID: 1, Quantity: 2})
	add.Body.Close()
	add = doPostAuth(t, "/api/cart/items", addItemRequest{ProductID: 3, Quantity: 1})
	add.Body.Close()

	const racers = 4
	statuses := make([]int, racers)
	orders := make([]orderResponse, racers)

	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := doPostAuth(t, "/api/checkout", nil)
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
			if resp.StatusCode == http.StatusOK {
				orders[i] = decodeJSON[orderResponse](t, resp)
			}
		}()
	}
	wg.Wait()

	var placed []orderResponse
	for i, code := range statuses {
		switch code {
		case http.StatusOK:
			placed = append(placed, orders[i])
		case http.StatusBadRequest:
			// loser: cart already drained by the winner
		default:
			t.Errorf("checkout %d: unexpected status %d", i, code)
		}
	}
	if len(placed) != 1 {
		t.Fatalf("expected exactly 1 successful checkout, got %d", len(placed))
	}

	// 2x Starfall Tactics $29.99 + 1x Apex Drift $19.99
	if placed[0].TotalAmount != 79.97 {
		t.Errorf("total_amount: got %v, want 79.97", placed[0].TotalAmount)
	}

	list := doGetAuth(t, "/api/cart")
	defer list.Body.Close()
	cart := decodeJSON[cartResponse](t, list)
	if len(cart.Items) != 0 {
		t.Errorf("expected drained cart, got %d items", len(cart.Items))
	}

	hist := doGetAuth(t, "/api/orders")
	defer hist.Body.Close()
	history := decodeJSON[orderListResponse](t, hist)
	if history.Count != 1 {
		t.Fatalf("expected 1 order in history, got %d", history.Count)
	}
	if history.Orders[0].ID != placed[0].ID {
		t.Errorf("history order %s does not match placed order %s", history.Orders[0].ID, placed[0].ID)
	}
}
