package service

import (
	"context"
	"errors"
	"marketplace/internal/domain/coupon/model"
	"marketplace/internal/domain/coupon/repository"
	orderModel "marketplace/internal/domain/order/model"
	productModel "marketplace/internal/domain/product/model"
	shippingService "marketplace/internal/domain/shipping/service"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/events"
	baseModel "marketplace/pkg/model"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *MockCouponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockCouponRepository) CountUserUsages(ctx context.Context, couponID, userID string) (int64, error) {
	args := m.Called(ctx, couponID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCouponRepository) Redeem(ctx context.Context, r repository.Redemption) (*model.CouponUsage, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CouponUsage), args.Error(1)
}

type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) GetByID(ctx context.Context, id string) (*orderModel.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderModel.Order), args.Error(1)
}

type MockProductReader struct {
	mock.Mock
}

func (m *MockProductReader) GetByIDs(ctx context.Context, ids []string) (map[string]*productModel.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*productModel.Product), args.Error(1)
}

type recordingDispatcher struct {
	events []events.Event
}

func (d *recordingDispatcher) Dispatch(evt events.Event) {
	d.events = append(d.events, evt)
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc        *couponService
	repo       *MockCouponRepository
	orders     *MockOrderReader
	products   *MockProductReader
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	calc, err := shippingService.NewCalculator(config.ShippingConfig{
		DefaultCost: "15.00",
		PerItemCost: "2.00",
		Regions:     map[string]string{"am": "35.90"},
	})
	require.NoError(t, err)

	f := &fixture{
		repo:       new(MockCouponRepository),
		orders:     new(MockOrderReader),
		products:   new(MockProductReader),
		dispatcher: &recordingDispatcher{},
	}
	svc := NewCouponService(f.repo, f.orders, f.products, calc, f.dispatcher, nil).(*couponService)
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc
	return f
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func amountPtr(s string) *decimal.Decimal {
	d := amount(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}

func activeCoupon(code, typ, value string) *model.Coupon {
	return &model.Coupon{
		BaseModel: baseModel.BaseModel{ID: "coupon-" + code},
		Code:      code,
		Type:      typ,
		Value:     amount(value),
		IsActive:  true,
		ValidFrom: fixedNow.Add(-24 * time.Hour),
	}
}

func TestValidateDiscounts(t *testing.T) {
	ctx := context.Background()

	t.Run("Percentage capped at max discount", func(t *testing.T) {
		f := newFixture(t)
		c := activeCoupon("TEN", model.TypePercentage, "10")
		c.MaxDiscount = amountPtr("50")
		f.repo.On("GetByCode", ctx, "TEN").Return(c, nil)

		res, err := f.svc.Validate(ctx, ValidateRequest{Code: "ten", UserID: "u1", OrderAmount: amount("1000")})

		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Equal(t, "50", res.Coupon.Discount.String())
	})

	t.Run("Percentage rounds half-up", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetByCode", ctx, "P").Return(activeCoupon("P", model.TypePercentage, "15"), nil)

		res, err := f.svc.Validate(ctx, ValidateRequest{Code: "P", OrderAmount: amount("33.30")})

		require.NoError(t, err)
		// 33.30 * 15% = 4.995
		assert.Equal(t, "5", res.Coupon.Discount.String())
	})

	t.Run("Fixed amount capped at order amount", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetByCode", ctx, "TWENTY").Return(activeCoupon("TWENTY", model.TypeFixedAmount, "20"), nil)

		res, err := f.svc.Validate(ctx, ValidateRequest{Code: "TWENTY", OrderAmount: amount("10")})

		require.NoError(t, err)
		assert.Equal(t, "10", res.Coupon.Discount.String())
	})

	t.Run("Free shipping uses shipping quote", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetByCode", ctx, "FRETE").Return(activeCoupon("FRETE", model.TypeFreeShipping, "0"), nil)

		res, err := f.svc.Validate(ctx, ValidateRequest{
			Code:        "FRETE",
			OrderAmount: amount("80"),
			Region:      "AM",
			Items:       []Item{{Category: "Books", Quantity: 2}},
		})
		require.NoError(t, err)
		assert.Equal(t, "37.9", res.Coupon.Discount.String())

		res, err = f.svc.Validate(ctx, ValidateRequest{Code: "FRETE", OrderAmount: amount("80")})
		require.NoError(t, err)
		assert.Equal(t, "15", res.Coupon.Discount.String())
	})
}

func TestValidateSave20Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := activeCoupon("SAVE20", model.TypeFixedAmount, "20")
	c.MinOrderAmount = amountPtr("150")
	f.repo.On("GetByCode", ctx, "SAVE20").Return(c, nil)

	_, err := f.svc.Validate(ctx, ValidateRequest{Code: "SAVE20", OrderAmount: amount("100")})
	assert.ErrorIs(t, err, ErrMinOrderAmount)
	assert.Contains(t, err.Error(), "must be at least $150.00")

	res, err := f.svc.Validate(ctx, ValidateRequest{Code: "SAVE20", OrderAmount: amount("200")})
	require.NoError(t, err)
	assert.Equal(t, "20", res.Coupon.Discount.String())
}

func TestValidateRejections(t *testing.T) {
	ctx := context.Background()
	past := fixedNow.Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(c *model.Coupon)
		want   error
	}{
		{"inactive", func(c *model.Coupon) { c.IsActive = false }, ErrCouponInactive},
		{"not yet valid", func(c *model.Coupon) { c.ValidFrom = fixedNow.Add(time.Hour) }, ErrCouponNotYetValid},
		{"expired", func(c *model.Coupon) { c.ValidUntil = &past }, ErrCouponExpired},
		{"usage limit", func(c *model.Coupon) { c.UsageLimit = intPtr(3); c.UsageCount = 3 }, ErrUsageLimitReached},
		{"inactive wins over expired", func(c *model.Coupon) { c.IsActive = false; c.ValidUntil = &past }, ErrCouponInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := activeCoupon("X", model.TypeFixedAmount, "5")
			tt.mutate(c)
			f.repo.On("GetByCode", ctx, "X").Return(c, nil)

			res, err := f.svc.Validate(ctx, ValidateRequest{Code: "X", UserID: "u1", OrderAmount: amount("100")})

			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
		})
	}

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetByCode", ctx, "NOPE").Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.Validate(ctx, ValidateRequest{Code: "nope"})
		assert.ErrorIs(t, err, ErrCouponNotFound)
	})

	t.Run("valid until boundary is inclusive", func(t *testing.T) {
		f := newFixture(t)
		c := activeCoupon("EDGE", model.TypeFixedAmount, "5")
		until := fixedNow
		c.ValidUntil = &until
		f.repo.On("GetByCode", ctx, "EDGE").Return(c, nil)

		_, err := f.svc.Validate(ctx, ValidateRequest{Code: "EDGE", OrderAmount: amount("100")})
		assert.NoError(t, err)
	})

	t.Run("user limit", func(t *testing.T) {
		f := newFixture(t)
		c := activeCoupon("ONCE", model.TypeFixedAmount, "5")
		c.UserLimit = intPtr(1)
		f.repo.On("GetByCode", ctx, "ONCE").Return(c, nil)
		f.repo.On("CountUserUsages", ctx, c.ID, "u1").Return(int64(1), nil)
		f.repo.On("CountUserUsages", ctx, c.ID, "u2").Return(int64(0), nil)

		_, err := f.svc.Validate(ctx, ValidateRequest{Code: "ONCE", UserID: "u1", OrderAmount: amount("100")})
		assert.ErrorIs(t, err, ErrUserLimitReached)

		_, err = f.svc.Validate(ctx, ValidateRequest{Code: "ONCE", UserID: "u2", OrderAmount: amount("100")})
		assert.NoError(t, err)
	})

	t.Run("repository error is not a rejection", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("GetByCode", ctx, "X").Return(nil, errors.New("timeout"))

		_, err := f.svc.Validate(ctx, ValidateRequest{Code: "X"})
		assert.EqualError(t, err, "timeout")
		assert.False(t, isRejection(err))
	})
}

func TestValidateCategory(t *testing.T) {
	ctx := context.Background()

	newCategoryFixture := func(t *testing.T) *fixture {
		f := newFixture(t)
		c := activeCoupon("TECH", model.TypeFixedAmount, "5")
		c.Category = strPtr("electronics")
		f.repo.On("GetByCode", ctx, "TECH").Return(c, nil)
		return f
	}

	t.Run("case-insensitive substring match", func(t *testing.T) {
		f := newCategoryFixture(t)

		_, err := f.svc.Validate(ctx, ValidateRequest{
			Code:        "TECH",
			OrderAmount: amount("100"),
			Items:       []Item{{Category: "Books"}, {Category: "Consumer Electronics"}},
		})
		assert.NoError(t, err)
	})

	t.Run("no item matches", func(t *testing.T) {
		f := newCategoryFixture(t)

		_, err := f.svc.Validate(ctx, ValidateRequest{
			Code:        "TECH",
			OrderAmount: amount("100"),
			Items:       []Item{{Category: "Books"}},
		})
		assert.ErrorIs(t, err, ErrCategoryMismatch)
		assert.Contains(t, err.Error(), "coupon only applies to electronics products")
	})

	t.Run("category resolved from product", func(t *testing.T) {
		f := newCategoryFixture(t)
		f.products.On("GetByIDs", ctx, []string{"p1"}).Return(map[string]*productModel.Product{
			"p1": {Category: "Electronics"},
		}, nil)

		_, err := f.svc.Validate(ctx, ValidateRequest{
			Code:        "TECH",
			OrderAmount: amount("100"),
			Items:       []Item{{ProductID: "p1"}},
		})
		assert.NoError(t, err)
	})

	t.Run("no items", func(t *testing.T) {
		f := newCategoryFixture(t)

		_, err := f.svc.Validate(ctx, ValidateRequest{Code: "TECH", OrderAmount: amount("100")})
		assert.ErrorIs(t, err, ErrCategoryMismatch)
	})
}

func TestValidateIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := activeCoupon("SAVE20", model.TypeFixedAmount, "20")
	c.UsageLimit = intPtr(10)
	c.UsageCount = 4
	f.repo.On("GetByCode", ctx, "SAVE20").Return(c, nil)

	req := ValidateRequest{Code: "SAVE20", UserID: "u1", OrderAmount: amount("200")}
	first, err := f.svc.Validate(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.Validate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 4, c.UsageCount)
	f.repo.AssertNotCalled(t, "Redeem", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.dispatcher.events)
}

func pendingOrder() *orderModel.Order {
	return &orderModel.Order{
		BaseModel:     baseModel.BaseModel{ID: "o1"},
		UserID:        "u1",
		Total:         amount("200"),
		ShippingCost:  amount("15"),
		Status:        orderModel.OrderStatusPending,
		CustomerState: "SP",
		Items: []orderModel.OrderItem{
			{ProductID: "p1", Category: "Electronics", Quantity: 1, Price: amount("200")},
		},
	}
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		c := activeCoupon("SAVE20", model.TypeFixedAmount, "20")
		c.MinOrderAmount = amountPtr("150")
		f.orders.On("GetByID", ctx, "o1").Return(pendingOrder(), nil)
		f.repo.On("GetByCode", ctx, "SAVE20").Return(c, nil)
		f.repo.On("Redeem", ctx, mock.MatchedBy(func(r repository.Redemption) bool {
			return r.CouponID == c.ID && r.OrderID == "o1" && r.UserID == "u1" && r.Discount.Equal(amount("20"))
		})).Return(&model.CouponUsage{CouponID: c.ID, OrderID: "o1"}, nil)

		res, err := f.svc.Redeem(ctx, RedeemRequest{Code: "save20", UserID: "u1", OrderID: "o1"})

		require.NoError(t, err)
		assert.Equal(t, "20", res.Coupon.Discount.String())
		assert.Equal(t, "195", res.AmountDue.String())
		require.Len(t, f.dispatcher.events, 1)
		assert.Equal(t, events.TypeCouponRedeemed, f.dispatcher.events[0].Type)
	})

	t.Run("Order of another user", func(t *testing.T) {
		f := newFixture(t)
		f.orders.On("GetByID", ctx, "o1").Return(pendingOrder(), nil)

		_, err := f.svc.Redeem(ctx, RedeemRequest{Code: "SAVE20", UserID: "intruder", OrderID: "o1"})
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("Order already confirmed", func(t *testing.T) {
		f := newFixture(t)
		o := pendingOrder()
		o.Status = orderModel.OrderStatusConfirmed
		f.orders.On("GetByID", ctx, "o1").Return(o, nil)

		_, err := f.svc.Redeem(ctx, RedeemRequest{Code: "SAVE20", UserID: "u1", OrderID: "o1"})
		assert.ErrorIs(t, err, ErrOrderNotRedeemable)
		f.repo.AssertNotCalled(t, "GetByCode", mock.Anything, mock.Anything)
	})

	t.Run("Lost race for last usage", func(t *testing.T) {
		f := newFixture(t)
		c := activeCoupon("LAST", model.TypeFixedAmount, "5")
		c.UsageLimit = intPtr(1)
		f.orders.On("GetByID", ctx, "o1").Return(pendingOrder(), nil)
		f.repo.On("GetByCode", ctx, "LAST").Return(c, nil)
		f.repo.On("Redeem", ctx, mock.Anything).Return(nil, repository.ErrUsageExhausted)

		_, err := f.svc.Redeem(ctx, RedeemRequest{Code: "LAST", UserID: "u1", OrderID: "o1"})
		assert.ErrorIs(t, err, ErrUsageLimitReached)
		assert.Empty(t, f.dispatcher.events)
	})

	t.Run("Concurrent redemption by same user", func(t *testing.T) {
		f := newFixture(t)
		c := activeCoupon("ONCE", model.TypeFixedAmount, "5")
		c.UserLimit = intPtr(1)
		f.orders.On("GetByID", ctx, "o1").Return(pendingOrder(), nil)
		f.repo.On("GetByCode", ctx, "ONCE").Return(c, nil)
		f.repo.On("CountUserUsages", ctx, c.ID, "u1").Return(int64(0), nil)
		f.repo.On("Redeem", ctx, mock.MatchedBy(func(r repository.Redemption) bool {
			return r.UserLimit != nil && *r.UserLimit == 1
		})).Return(nil, repository.ErrUserUsageExhausted)

		_, err := f.svc.Redeem(ctx, RedeemRequest{Code: "ONCE", UserID: "u1", OrderID: "o1"})
		assert.ErrorIs(t, err, ErrUserLimitReached)
		assert.Empty(t, f.dispatcher.events)
	})
}

func TestCreateCoupon(t *testing.T) {
	ctx := context.Background()

	t.Run("Code is upper-cased", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("Create", ctx, mock.MatchedBy(func(c *model.Coupon) bool {
			return c.Code == "WELCOME10" && c.IsActive && c.ValidFrom.Equal(fixedNow)
		})).Return(nil)

		c, err := f.svc.CreateCoupon(ctx, CreateCouponRequest{Code: " welcome10 ", Type: model.TypePercentage, Value: amount("10")})
		require.NoError(t, err)
		assert.Equal(t, "WELCOME10", c.Code)
	})

	t.Run("Duplicate code", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("Create", ctx, mock.Anything).Return(gorm.ErrDuplicatedKey)

		_, err := f.svc.CreateCoupon(ctx, CreateCouponRequest{Code: "DUP", Type: model.TypeFixedAmount, Value: amount("5")})
		assert.ErrorIs(t, err, ErrCouponExists)
	})

	t.Run("Invalid definitions", func(t *testing.T) {
		f := newFixture(t)
		before := fixedNow.Add(-time.Hour)

		for _, req := range []CreateCouponRequest{
			{Code: "", Type: model.TypeFixedAmount, Value: amount("5")},
			{Code: "A", Type: "BOGUS", Value: amount("5")},
			{Code: "A", Type: model.TypePercentage, Value: amount("101")},
			{Code: "A", Type: model.TypeFixedAmount, Value: amount("0")},
			{Code: "A", Type: model.TypeFreeShipping, ValidUntil: &before},
		} {
			_, err := f.svc.CreateCoupon(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidCoupon)
		}
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
