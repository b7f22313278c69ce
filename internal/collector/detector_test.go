package collector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitelens/sitelens/internal/analysis"
)

func TestShouldPromoteEmptyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	require.True(t, h.ShouldPromote(analysis.RawDocument{StatusCode: 200}))
}

func TestShouldPromoteSPAMarker(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	doc := analysis.RawDocument{
		StatusCode: 200,
		Body:       []byte(`<html><body><div id="root"></div></body></html>`),
	}
	require.True(t, h.ShouldPromote(doc))
}

func TestShouldPromoteScriptHeavyShortBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(4096)
	body := "<html><body><p>x</p><script>" + strings.Repeat("var a=1;", 40) + "</script></body></html>"
	require.True(t, h.ShouldPromote(analysis.RawDocument{StatusCode: 200, Body: []byte(body)}))
}

func TestShouldNotPromoteStaticContent(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	body := "<html><body>" + strings.Repeat("<p>plenty of server-rendered text</p>", 100) + "</body></html>"
	require.False(t, h.ShouldPromote(analysis.RawDocument{StatusCode: 200, Body: []byte(body)}))
}

func TestShouldNotPromoteNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	require.False(t, h.ShouldPromote(analysis.RawDocument{StatusCode: 404}))
}
