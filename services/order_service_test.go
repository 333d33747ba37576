package services

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/agency-sales-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNumber(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	number := GenerateOrderNumber(now)
	assert.Regexp(t, regexp.MustCompile(`^ORD-20240309-[0-9A-F]{8}$`), number)
	assert.NotEqual(t, number, GenerateOrderNumber(now))
}

func TestOrderCreateSingleLine(t *testing.T) {
	w := newWorld(t)
	svc := NewOrderService(w.db)

	order, err := svc.Create(IdentityFor(w.salesA), CreateOrderInput{
		CustomerID: w.custA.ID,
		Items:      []OrderLineInput{{ProductID: w.prodA.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, "29.97", order.TotalAmount.StringFixed(2))
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, w.agencyA.ID, order.AgencyID)
	assert.Equal(t, w.salesA.ID, order.SalespersonID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "9.99", order.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "29.97", order.Items[0].TotalPrice.StringFixed(2))
	require.NotNil(t, order.Customer)
	assert.Equal(t, "Acme Corp", order.Customer.Name)
}

func TestOrderCreateDropsInvalidLines(t *testing.T) {
	w := newWorld(t)
	svc := NewOrderService(w.db)

	order, err := svc.Create(IdentityFor(w.staffA), CreateOrderInput{
		CustomerID: w.custA.ID,
		Items: []OrderLineInput{
			{ProductID: w.prodA.ID, Quantity: 2},
			{ProductID: w.prodA2.ID, Quantity: 1},
			{ProductID: w.prodA2.ID, Quantity: 0},
			{ProductID: w.prodA.ID, Quantity: -4},
			{ProductID: w.prodInactive.ID, Quantity: 5},
			{ProductID: w.prodB.ID, Quantity: 5},
			{ProductID: 9999, Quantity: 1},
		},
		Discount:     decimal.RequireFromString("1.50"),
		Tax:          decimal.RequireFromString("2.25"),
		Notes:        "  rush  ",
		DeliveryDate: "2024-12-24",
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "39.98", order.TotalAmount.StringFixed(2))
	assert.True(t, order.TotalAmount.Equal(order.ItemsTotal()))
	assert.Equal(t, "1.50", order.Discount.StringFixed(2))
	assert.Equal(t, "2.25", order.Tax.StringFixed(2))
	assert.Equal(t, "rush", order.Notes)
	require.NotNil(t, order.DeliveryDate)
	assert.Equal(t, "2024-12-24", order.DeliveryDate.Format("2006-01-02"))
}

func TestOrderCreateRejections(t *testing.T) {
	w := newWorld(t)
	svc := NewOrderService(w.db)
	inactive := mustCreate(t, w.db, models.Customer{Name: "Sleepy", LocationID: w.locA.ID, IsActive: true})
	require.NoError(t, w.db.Model(&inactive).Update("is_active", false).Error)

	tests := []struct {
		name         string
		identity     Identity
		input        CreateOrderInput
		expectedKind ErrorKind
		expectedMsg  string
	}{
		{
			name:         "no valid lines",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: w.custA.ID, Items: []OrderLineInput{{ProductID: w.prodB.ID, Quantity: 1}, {ProductID: w.prodA.ID, Quantity: 0}}},
			expectedKind: KindValidation,
			expectedMsg:  "Order must contain at least one valid item",
		},
		{
			name:         "empty items",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: w.custA.ID},
			expectedKind: KindValidation,
			expectedMsg:  "Order must contain at least one valid item",
		},
		{
			name:         "customer of another agency",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: w.custB.ID, Items: []OrderLineInput{{ProductID: w.prodB.ID, Quantity: 1}}},
			expectedKind: KindAuthorization,
		},
		{
			name:         "unknown customer",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: 9999, Items: []OrderLineInput{{ProductID: w.prodA.ID, Quantity: 1}}},
			expectedKind: KindNotFound,
		},
		{
			name:         "inactive customer",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: inactive.ID, Items: []OrderLineInput{{ProductID: w.prodA.ID, Quantity: 1}}},
			expectedKind: KindValidation,
		},
		{
			name:         "negative discount",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: w.custA.ID, Items: []OrderLineInput{{ProductID: w.prodA.ID, Quantity: 1}}, Discount: decimal.NewFromInt(-1)},
			expectedKind: KindValidation,
		},
		{
			name:         "discount above money limit",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: w.custA.ID, Items: []OrderLineInput{{ProductID: w.prodA.ID, Quantity: 1}}, Discount: decimal.NewFromInt(100000000)},
			expectedKind: KindValidation,
			expectedMsg:  "Discount cannot exceed 99999999.99",
		},
		{
			name:         "total above money limit",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: w.custA.ID, Items: []OrderLineInput{{ProductID: w.prodA2.ID, Quantity: 4000000}, {ProductID: w.prodA2.ID, Quantity: 1000000}}},
			expectedKind: KindValidation,
			expectedMsg:  "Order total cannot exceed 99999999.99",
		},
		{
			name:         "bad delivery date",
			identity:     IdentityFor(w.salesA),
			input:        CreateOrderInput{CustomerID: w.custA.ID, Items: []OrderLineInput{{ProductID: w.prodA.ID, Quantity: 1}}, DeliveryDate: "24/12/2024"},
			expectedKind: KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(tt.identity, tt.input)
			require.Error(t, err)
			svcErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.expectedKind, svcErr.Kind)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, svcErr.Message)
			}
		})
	}

	assert.Equal(t, int64(0), count(t, w.db, &models.Order{}))
	assert.Equal(t, int64(0), count(t, w.db, &models.OrderItem{}))
}

func TestOrderCreateRetriesOnNumberCollision(t *testing.T) {
	w := newWorld(t)
	existing := w.order(t, w.salesA, w.custA, models.OrderPending)

	svc := NewOrderService(w.db)
	numbers := []string{existing.OrderNumber, "ORD-20240101-BEEFCAFE"}
	calls := 0
	svc.newNumber = func(time.Time) string {
		n := numbers[calls]
		calls++
		return n
	}

	order, err := svc.Create(IdentityFor(w.salesA), CreateOrderInput{
		CustomerID: w.custA.ID,
		Items:      []OrderLineInput{{ProductID: w.prodA.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "ORD-20240101-BEEFCAFE", order.OrderNumber)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, int64(2), count(t, w.db, &models.OrderItem{}))
}

func TestOrderCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	w := newWorld(t)
	existing := w.order(t, w.salesA, w.custA, models.OrderPending)

	svc := NewOrderService(w.db)
	calls := 0
	svc.newNumber = func(time.Time) string {
		calls++
		return existing.OrderNumber
	}

	_, err := svc.Create(IdentityFor(w.salesA), CreateOrderInput{
		CustomerID: w.custA.ID,
		Items:      []OrderLineInput{{ProductID: w.prodA.ID, Quantity: 1}},
	})
	require.Error(t, err)
	svcErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "ORDER_NUMBER_EXHAUSTED", svcErr.Code)
	assert.Equal(t, maxOrderNumberAttempts, calls)
	assert.Equal(t, int64(1), count(t, w.db, &models.Order{}))
	assert.Equal(t, int64(1), count(t, w.db, &models.OrderItem{}))
}

func TestOrderGetVisibility(t *testing.T) {
	w := newWorld(t)
	svc := NewOrderService(w.db)
	order := w.order(t, w.salesA, w.custA, models.OrderPending)

	_, err := svc.Get(IdentityFor(w.salesA2), order.ID)
	assert.ErrorIs(t, err, ErrNotPermitted)

	_, err = svc.Get(IdentityFor(w.adminB), order.ID)
	assert.ErrorIs(t, err, ErrNotPermitted)

	for _, user := range []models.User{w.salesA, w.staffA, w.adminA, w.super} {
		got, err := svc.Get(IdentityFor(user), order.ID)
		require.NoError(t, err, user.Username)
		assert.Equal(t, order.OrderNumber, got.OrderNumber)
	}

	_, err = svc.Get(IdentityFor(w.super), 9999)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestOrderListFilters(t *testing.T) {
	w := newWorld(t)
	svc := NewOrderService(w.db)
	second := mustCreate(t, w.db, models.Customer{Name: "Second", LocationID: w.locA.ID, IsActive: true})
	first := w.order(t, w.salesA, w.custA, models.OrderPending)
	w.order(t, w.salesA2, second, models.OrderConfirmed)
	admin := IdentityFor(w.adminA)

	byCustomer, err := svc.List(admin, ListFilter{CustomerID: w.custA.ID})
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, first.ID, byCustomer[0].ID)

	byStatus, err := svc.List(admin, ListFilter{Status: "confirmed"})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, second.ID, byStatus[0].CustomerID)

	bySeller, err := svc.List(admin, ListFilter{SalespersonID: w.salesA2.ID})
	require.NoError(t, err)
	assert.Len(t, bySeller, 1)

	byLocation, err := svc.List(admin, ListFilter{LocationID: w.locA.ID})
	require.NoError(t, err)
	assert.Len(t, byLocation, 2)

	bySearch, err := svc.List(admin, ListFilter{Search: first.OrderNumber[len(first.OrderNumber)-8:]})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, first.ID, bySearch[0].ID)

	// salesperson filter cannot widen a salesperson's own scope
	own, err := svc.List(IdentityFor(w.salesA), ListFilter{SalespersonID: w.salesA2.ID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, w.salesA.ID, own[0].SalespersonID)
}

func TestOrderUpdateStatus(t *testing.T) {
	tests := []struct {
		name         string
		from         models.OrderStatus
		to           string
		asSales      bool
		expectedKind ErrorKind
		expectedCode string
	}{
		{"pending to confirmed", models.OrderPending, "confirmed", false, 0, ""},
		{"confirmed to shipped", models.OrderConfirmed, "shipped", false, 0, ""},
		{"shipped to delivered", models.OrderShipped, "DELIVERED", false, 0, ""},
		{"shipped to cancelled", models.OrderShipped, "cancelled", false, 0, ""},
		{"same status is a no-op", models.OrderConfirmed, "confirmed", false, 0, ""},
		{"pending to shipped", models.OrderPending, "shipped", false, KindValidation, "INVALID_STATUS_TRANSITION"},
		{"delivered is terminal", models.OrderDelivered, "cancelled", false, KindValidation, "INVALID_STATUS_TRANSITION"},
		{"cancelled is terminal", models.OrderCancelled, "pending", false, KindValidation, "INVALID_STATUS_TRANSITION"},
		{"unknown status", models.OrderPending, "lost", false, KindValidation, "VALIDATION_ERROR"},
		{"salesperson confirms", models.OrderPending, "confirmed", true, 0, ""},
		{"salesperson cancels", models.OrderConfirmed, "cancelled", true, 0, ""},
		{"salesperson cannot ship", models.OrderConfirmed, "shipped", true, KindAuthorization, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld(t)
			svc := NewOrderService(w.db)
			order := w.order(t, w.salesA, w.custA, tt.from)
			id := IdentityFor(w.staffA)
			if tt.asSales {
				id = IdentityFor(w.salesA)
			}

			updated, err := svc.UpdateStatus(id, order.ID, tt.to)

			var stored models.Order
			require.NoError(t, w.db.First(&stored, order.ID).Error)
			if tt.expectedKind != 0 {
				require.Error(t, err)
				svcErr, ok := AsError(err)
				require.True(t, ok)
				assert.Equal(t, tt.expectedKind, svcErr.Kind)
				if tt.expectedCode != "" {
					assert.Equal(t, tt.expectedCode, svcErr.Code)
				}
				assert.Equal(t, tt.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.OrderStatus(strings.ToLower(tt.to)), stored.Status)
			assert.Equal(t, stored.Status, updated.Status)
		})
	}
}

func TestOrderTransitionsBindEveryRole(t *testing.T) {
	w := newWorld(t)
	svc := NewOrderService(w.db)

	callers := map[string]models.User{"super admin": w.super, "agency admin": w.adminA, "salesperson": w.salesA}
	for name, user := range callers {
		t.Run(name, func(t *testing.T) {
			confirmed := w.order(t, w.salesA, w.custA, models.OrderConfirmed)
			_, err := svc.UpdateStatus(IdentityFor(user), confirmed.ID, "pending")
			require.Error(t, err)
			svcErr, _ := AsError(err)
			assert.Equal(t, "INVALID_STATUS_TRANSITION", svcErr.Code)

			if user.Role == models.RoleSalesperson {
				return
			}
			pending := w.order(t, w.salesA, w.custA, models.OrderPending)
			_, err = svc.UpdateStatus(IdentityFor(user), pending.ID, "delivered")
			require.Error(t, err)
			svcErr, _ = AsError(err)
			assert.Equal(t, "INVALID_STATUS_TRANSITION", svcErr.Code)

			var stored models.Order
			require.NoError(t, w.db.First(&stored, pending.ID).Error)
			assert.Equal(t, models.OrderPending, stored.Status)
		})
	}
}

func TestOrderCreateConcurrentlyAllocatesDistinctNumbers(t *testing.T) {
	w := newWorld(t)
	svc := NewOrderService(w.db)
	const workers = 20

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]int)
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(quantity int) {
			defer wg.Done()
			order, err := svc.Create(IdentityFor(w.salesA), CreateOrderInput{
				CustomerID: w.custA.ID,
				Items:      []OrderLineInput{{ProductID: w.prodA.ID, Quantity: quantity}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[order.OrderNumber]++
		}(i + 1)
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, numbers, workers)
	for number, seen := range numbers {
		assert.Equal(t, 1, seen, number)
	}
	assert.Equal(t, int64(workers), count(t, w.db, &models.Order{}))
	assert.Equal(t, int64(workers), count(t, w.db, &models.OrderItem{}))

	var stored []string
	require.NoError(t, w.db.Model(&models.Order{}).Distinct().Pluck("order_number", &stored).Error)
	assert.Len(t, stored, workers)
}

func TestOrderUpdate(t *testing.T) {
	w := newWorld(t)
	svc := NewOrderService(w.db)
	order := w.order(t, w.salesA, w.custA, models.OrderConfirmed)

	updated, err := svc.Update(IdentityFor(w.salesA), order.ID, UpdateOrderInput{
		Discount:     decimal.RequireFromString("0.97"),
		Tax:          decimal.RequireFromString("1.10"),
		Notes:        "call first",
		DeliveryDate: "2025-01-15",
	})
	require.NoError(t, err)
	assert.Equal(t, "0.97", updated.Discount.StringFixed(2))
	assert.Equal(t, "1.10", updated.Tax.StringFixed(2))
	assert.Equal(t, "call first", updated.Notes)
	require.NotNil(t, updated.DeliveryDate)
	assert.True(t, updated.TotalAmount.Equal(updated.ItemsTotal()))

	cleared, err := svc.Update(IdentityFor(w.salesA), order.ID, UpdateOrderInput{})
	require.NoError(t, err)
	assert.Nil(t, cleared.DeliveryDate)

	_, err = svc.Update(IdentityFor(w.salesA), order.ID, UpdateOrderInput{Tax: decimal.NewFromInt(-2)})
	assert.True(t, IsKind(err, KindValidation))

	_, err = svc.Update(IdentityFor(w.salesA), order.ID, UpdateOrderInput{Tax: decimal.RequireFromString("100000000.00")})
	require.Error(t, err)
	assert.Equal(t, "Tax cannot exceed 99999999.99", err.Error())

	for _, status := range []models.OrderStatus{models.OrderShipped, models.OrderDelivered} {
		locked := w.order(t, w.salesA, w.custA, status)
		_, err := svc.Update(IdentityFor(w.adminA), locked.ID, UpdateOrderInput{Notes: "too late"})
		require.Error(t, err, status)
		svcErr, _ := AsError(err)
		assert.Equal(t, "ORDER_NOT_EDITABLE", svcErr.Code)

		var stored models.Order
		require.NoError(t, w.db.First(&stored, locked.ID).Error)
		assert.Empty(t, stored.Notes)
	}
}

func TestOrderDelete(t *testing.T) {
	tests := []struct {
		status    models.OrderStatus
		deletable bool
	}{
		{models.OrderPending, true},
		{models.OrderCancelled, true},
		{models.OrderConfirmed, false},
		{models.OrderShipped, false},
		{models.OrderDelivered, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			w := newWorld(t)
			svc := NewOrderService(w.db)
			order := w.order(t, w.salesA, w.custA, tt.status)

			_, err := svc.Delete(IdentityFor(w.adminA), order.ID)
			if tt.deletable {
				require.NoError(t, err)
				assert.Equal(t, int64(0), count(t, w.db, &models.Order{}))
				assert.Equal(t, int64(0), count(t, w.db, &models.OrderItem{}))
				return
			}
			require.Error(t, err)
			svcErr, _ := AsError(err)
			assert.Equal(t, "ORDER_NOT_DELETABLE", svcErr.Code)
			assert.Equal(t, int64(1), count(t, w.db, &models.OrderItem{}))
		})
	}
}
