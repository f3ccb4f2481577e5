package service_test

import (
	"bytes"
	"testing"

	"restaurant-sync/sync-svc/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultQRGenerator(t *testing.T) {
	g := service.DefaultQRGenerator{URLTemplate: "https://order.example/r/{restaurant}?table={table}"}

	assert.Equal(t, "https://order.example/r/rst_001?table=tbl+7", g.Link("rst_001", "tbl 7"))

	png, err := g.Generate("rst_001", "tbl_7")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
