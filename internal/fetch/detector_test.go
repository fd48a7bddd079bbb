package fetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetector_ShouldPromote_EmptyBody(t *testing.T) {
	t.Parallel()

	d := NewDetector(100)
	require.True(t, d.ShouldPromote(Response{StatusCode: 200, Body: []byte("")}))
}

func TestDetector_ShouldPromote_SPAMarkers(t *testing.T) {
	t.Parallel()

	d := NewDetector(100)
	require.True(t, d.ShouldPromote(Response{
		StatusCode: 200,
		Body:       []byte(`<div id="__next"></div>`),
	}))
}

func TestDetector_ShouldPromote_ScriptDensity(t *testing.T) {
	t.Parallel()

	d := NewDetector(1000)
	require.True(t, d.ShouldPromote(Response{
		StatusCode: 200,
		Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
	}))
}

func TestDetector_ShouldPromote_PlainDocument(t *testing.T) {
	t.Parallel()

	d := NewDetector(10)
	require.False(t, d.ShouldPromote(Response{
		StatusCode: 200,
		Body:       []byte(`<html><body><h1>Product</h1><span class="price">$10</span></body></html>`),
	}))
}

func TestDetector_ShouldPromote_DisabledForNon200(t *testing.T) {
	t.Parallel()

	d := NewDetector(100)
	require.False(t, d.ShouldPromote(Response{StatusCode: 404, Body: []byte("not found")}))
}
