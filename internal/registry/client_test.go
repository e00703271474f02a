package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Lookup(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/beneficiaries/lookup", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("document_number") {
		case "30000001":
			_, _ = w.Write([]byte(`{"id":"7b1d3c3e-7c57-4c4e-9c69-5d0a2f1a4b10","first_name":" Ana ","last_name":"Paz","birth_date":"2019-04-12"}`))
		case "500":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"upstream down"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second, zap.NewNop())
	ctx := context.Background()

	b, err := c.Lookup(ctx, "DNI", "30000001")
	require.NoError(t, err)
	assert.Equal(t, "Ana", b.FirstName)
	assert.Equal(t, "DNI", b.DocumentType)
	require.NotNil(t, b.BirthDate)
	assert.Equal(t, 2019, b.BirthDate.Year())

	_, err = c.Lookup(ctx, "DNI", "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	before := calls.Load()
	_, err = c.Lookup(ctx, "DNI", "500")
	require.Error(t, err)
	assert.NotEqual(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, int32(3), calls.Load()-before)
}
