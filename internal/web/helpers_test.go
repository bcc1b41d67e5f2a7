package web

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(raw)
}

func decode(t *testing.T, body string, out any) {
	t.Helper()

	require.NoError(t, json.Unmarshal([]byte(body), out), body)
}
