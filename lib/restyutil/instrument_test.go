package restyutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	lock     sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.messages[id] = contents
}

func TestDumpMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal", "sefaz")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	out := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	DumpMessages(client, "test", out)

	_, err := client.R().
		SetFormData(map[string]string{"__VIEWSTATE": "abc"}).
		Post(server.URL + "/form")
	require.NoError(t, err)

	require.Len(t, out.messages, 1)
	msg, ok := out.messages["test-001.txt"]
	require.True(t, ok)
	require.Contains(t, msg, "POST "+server.URL+"/form")
	require.Contains(t, msg, "__VIEWSTATE=abc")
	require.Contains(t, msg, "X-Portal: sefaz")
	require.Contains(t, msg, "<html>ok</html>")
}

func TestDumpMessagesWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>landing</html>"))
	}))
	defer server.Close()

	out := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	DumpMessages(client, "test", out)

	res, err := client.R().Get(server.URL + "/qrcode")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())

	msg, ok := out.messages["test-001.txt"]
	require.True(t, ok)
	require.Contains(t, msg, "GET "+server.URL+"/qrcode")
	require.Contains(t, msg, "<NO BODY AVAILABLE>")
	require.Contains(t, msg, "<html>landing</html>")
}

func TestFormatRequestBodyNilGetBody(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://localhost/", nil)
	require.NoError(t, err)
	req.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Equal(t, "<NO BODY AVAILABLE>", formatRequestBody(req))

	req.Body = io.NopCloser(strings.NewReader("a=1"))
	require.Equal(t, "<NO BODY AVAILABLE>", formatRequestBody(req))
}

func TestDumpMessagesNilOutput(t *testing.T) {
	client := resty.New()
	DumpMessages(client, "test", nil)
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	out.Write("a.txt", "contents")

	written, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(written))
}

func TestFormatHeadersSorted(t *testing.T) {
	headers := http.Header{}
	headers.Add("B", "2")
	headers.Add("A", "1")
	headers.Add("A", "3")
	require.Equal(t, "A: 1\nA: 3\nB: 2", formatHeaders(headers))
	require.Equal(t, "", formatHeaders(http.Header{}))
}
