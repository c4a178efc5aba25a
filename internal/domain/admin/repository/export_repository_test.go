package repository

import (
	"context"
	"marketplace/internal/domain/admin/model"
	orderModel "marketplace/internal/domain/order/model"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestEveryKindHasAccessor(t *testing.T) {
	for _, k := range model.AllKinds {
		_, ok := accessors[k]
		assert.True(t, ok, "missing accessor for %s", k)
	}
	assert.Len(t, accessors, len(model.AllKinds))
}

func TestListSellerPayouts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewExportRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "seller_payouts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT \* FROM "seller_payouts" .*ORDER BY created_at DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "seller_id", "amount", "commission", "status"}).
			AddRow("po-2", "order-1", "seller-a", "190.00", "10.00", "PENDING").
			AddRow("po-1", "order-1", "seller-b", "47.50", "2.50", "PAID"))

	list, total, err := repo.List(context.Background(), model.KindSellerPayouts, 0, 2)

	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	payouts, ok := list.([]orderModel.SellerPayout)
	require.True(t, ok)
	require.Len(t, payouts, 2)
	assert.Equal(t, "190", payouts[0].Amount.String())
	assert.Equal(t, "2.5", payouts[1].Commission.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEmptyReturnsEmptySlice(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewExportRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	list, total, err := repo.List(context.Background(), model.KindUsers, 0, 20)

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}
