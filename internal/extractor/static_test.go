package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleister1102/webpursuer/internal/models"
)

func staticServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
}

func TestStaticExtract_BasicFragment(t *testing.T) {
	server := staticServer(`<html><body>
		<div id="main">
			<h1>Offers</h1>
			<p>Laptop <b>999</b> EUR</p>
			<script>var tracked = true;</script>
		</div>
	</body></html>`)
	defer server.Close()

	se := NewStaticExtractor(server.Client(), zerolog.Nop())
	text, err := se.Extract(context.Background(), server.URL, nil, "#main")

	require.NoError(t, err)
	assert.Contains(t, text, "Offers")
	assert.Contains(t, text, "Laptop")
	assert.Contains(t, text, "999")
	assert.NotContains(t, text, "tracked")
}

func TestStaticExtract_HiddenAndControlElements(t *testing.T) {
	server := staticServer(`<html><body>
		<div id="main">
			<span style="display: none">invisible</span>
			<input type="hidden" value="csrf-token">
			<input type="text" value="typed">
			<select><option>first</option><option selected label="picked">second</option></select>
			<span>visible</span>
		</div>
	</body></html>`)
	defer server.Close()

	se := NewStaticExtractor(server.Client(), zerolog.Nop())
	text, err := se.Extract(context.Background(), server.URL, nil, "#main")

	require.NoError(t, err)
	assert.NotContains(t, text, "invisible")
	assert.NotContains(t, text, "csrf-token")
	assert.Contains(t, text, "typed")
	assert.Contains(t, text, "picked")
	assert.Contains(t, text, "visible")
}

func TestStaticExtract_StyleHiddenFormControls(t *testing.T) {
	server := staticServer(`<html><body>
		<div id="main">
			<input type="text" value="secret" style="display:none">
			<textarea style="visibility: hidden">draft</textarea>
			<select style="display: none"><option selected>choice</option></select>
			<input type="text" value="shown">
		</div>
	</body></html>`)
	defer server.Close()

	se := NewStaticExtractor(server.Client(), zerolog.Nop())
	text, err := se.Extract(context.Background(), server.URL, nil, "#main")

	require.NoError(t, err)
	assert.NotContains(t, text, "secret")
	assert.NotContains(t, text, "draft")
	assert.NotContains(t, text, "choice")
	assert.Contains(t, text, "shown")
}

func TestStaticExtract_BlockJoining(t *testing.T) {
	server := staticServer(`<html><body>
		<ul id="list"><li>one</li><li>two</li></ul>
	</body></html>`)
	defer server.Close()

	se := NewStaticExtractor(server.Client(), zerolog.Nop())
	text, err := se.Extract(context.Background(), server.URL, nil, "#list")

	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", text)
}

func TestStaticExtract_RejectsInteractions(t *testing.T) {
	se := NewStaticExtractor(nil, zerolog.Nop())
	_, err := se.Extract(context.Background(), "https://example.com", []models.Interaction{
		{Type: models.InteractionClick, Selector: "#btn"},
	}, "#main")

	assert.Error(t, err)
}

func TestStaticExtract_MissingSelectorIsBlank(t *testing.T) {
	server := staticServer(`<html><body><p>nothing here</p></body></html>`)
	defer server.Close()

	se := NewStaticExtractor(server.Client(), zerolog.Nop())
	text, err := se.Extract(context.Background(), server.URL, nil, "#absent")

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestStaticExtract_HTTPErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	se := NewStaticExtractor(server.Client(), zerolog.Nop())
	_, err := se.Extract(context.Background(), server.URL, nil, "#main")

	assert.Error(t, err)
}
