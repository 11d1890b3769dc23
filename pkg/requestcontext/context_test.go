package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "mintgate/pkg/domain"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()

	t.Run("zero values when unset", func(t *testing.T) {
		assert.True(t, Principal(ctx).IsNil())
		assert.Empty(t, RequestID(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("injected values are returned", func(t *testing.T) {
		fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		c := WithTime(WithRequestID(WithPrincipal(ctx, id.Principal("alice")), "req-1"), fixed)

		assert.Equal(t, id.Principal("alice"), Principal(c))
		assert.Equal(t, "req-1", RequestID(c))
		assert.Equal(t, fixed, Now(c))
	})
}
