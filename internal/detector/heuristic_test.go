package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/fetcher"
)

func TestHeuristic_ShouldPromote_EmptyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := fetcher.Response{
		StatusCode: 200,
		Body:       []byte(""),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_SPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := fetcher.Response{
		StatusCode: 200,
		Body:       []byte(`<div id="__next"></div>`),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	h.ContentSelectors = nil
	resp := fetcher.Response{
		StatusCode: 200,
		Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_MissingContentNodes(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(10)
	resp := fetcher.Response{
		StatusCode: 200,
		Body:       []byte(`<html><body><div>loading</div></body></html>`),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_KeepsServerRenderedPosting(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(10)
	resp := fetcher.Response{
		StatusCode: 200,
		Body: []byte(`<html><body><h1>Backend Engineer at WidgetCo</h1>
<table><tr><td>Company</td><td>WidgetCo</td></tr></table></body></html>`),
	}
	require.False(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_DisabledForNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	resp := fetcher.Response{
		StatusCode: 404,
		Body:       []byte("not found"),
	}
	require.False(t, h.ShouldPromote(resp))
}
