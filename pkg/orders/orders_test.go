package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yametee.shop/jobs/pkg/pgtest"
)

func TestStore(t *testing.T) {
	pg := pgtest.NewDocker(t)
	defer pg.Close(t)
	ctx := context.Background()

	pg.DB.MustExec(pgtest.OrderSchema)
	pg.DB.MustExec(`INSERT INTO "Order" ("id", "orderNumber", "status", "paymentStatus")
		VALUES ('ord_123', 'YT-0001', 'PROCESSING', 'PAID');`)

	store := Store{DB: pg.DB}
	require.NoError(t, store.Ping(ctx))

	order, err := store.Get(ctx, "ord_123")
	require.NoError(t, err)
	assert.Equal(t, "YT-0001", order.OrderNumber)
	assert.Equal(t, "PROCESSING", order.Status)
	assert.Equal(t, "PAID", order.PaymentStatus)
	assert.False(t, order.CreatedAt.IsZero())

	_, err = store.Get(ctx, "ord_404")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "ord_404")
}
