package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), &config.Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
