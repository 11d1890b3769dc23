package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEmptyContext(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}

func TestWithNilTxLeavesContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))
}

func TestRunReusesAmbientTx(t *testing.T) {
	ambient := &sql.Tx{}
	ctx := WithTx(context.Background(), ambient)

	var seen *sql.Tx
	err := Run(ctx, nil, func(ctx context.Context) error {
		seen, _ = From(ctx)
		return nil
	})
	assert.NoError(t, err)
	assert.Same(t, ambient, seen)
}
