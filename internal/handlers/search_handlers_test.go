package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchUnavailableWithoutCluster(t *testing.T) {
	h := &SearchHandler{}
	e := newTestEcho()

	_, c := doJSONRequest(t, e, http.MethodGet, "/api/v1/search?q=coat", nil)
	err := h.Search(c)
	require.Error(t, err)
	require.Equal(t, http.StatusServiceUnavailable, httpCode(t, err))
}
