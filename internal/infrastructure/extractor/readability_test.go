package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractReducesPage(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("Threat hunting is the practice of proactively searching for adversaries. ", 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Hunting Guide</title></head><body>
		<nav><a href="/">Home</a><a href="/about">About</a></nav>
		<article>
		  <h1>Hunting Guide</h1>
		  <p>` + paragraph + `</p>
		  <p>` + paragraph + `</p>
		</article>
		<footer>Copyright</footer>
		</body></html>`))
	}))
	defer server.Close()

	ex := New(server.Client(), nil)
	title, content, err := ex.Extract(context.Background(), server.URL+"/blog/hunting-guide")
	require.NoError(t, err)
	require.Contains(t, title, "Hunting Guide")
	require.Contains(t, content, "Threat hunting")
	require.GreaterOrEqual(t, len(content), 100)
}

func TestExtractRejectsThinPages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>too short</p></body></html>`))
	}))
	defer server.Close()

	ex := New(server.Client(), nil)
	_, _, err := ex.Extract(context.Background(), server.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoContent))
}

func TestExtractBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ex := New(server.Client(), nil)
	_, _, err := ex.Extract(context.Background(), server.URL)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNoContent))
}

func TestTitleFromContent(t *testing.T) {
	t.Parallel()

	content := "Detecting Lateral Movement with Sysmon\n\nLong body text follows here."
	require.Equal(t, "Detecting Lateral Movement with Sysmon", TitleFromContent(content))

	require.Equal(t, "", TitleFromContent("short\nhi\nno"))
	require.Equal(t, "", TitleFromContent(""))

	// Over-long first line is skipped in favor of a later usable one.
	long := strings.Repeat("x", 250) + "\nA Reasonable Headline Instead"
	require.Equal(t, "A Reasonable Headline Instead", TitleFromContent(long))
}

func TestTitleFromURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Detecting Lateral Movement", TitleFromURL("https://example.com/blog/detecting-lateral-movement"))
	require.Equal(t, "My Post", TitleFromURL("https://example.com/posts/my_post/"))
	require.Equal(t, "example.com", TitleFromURL("https://example.com/"))
}
