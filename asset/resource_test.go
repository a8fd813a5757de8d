package asset

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestLocalResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	res, err := NewResource(thisFile, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected a local resource")
	}
	if res.Ext() != ".go" {
		t.Fatalf("expected extension .go; got %q", res.Ext())
	}
	data, err := res.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "package asset") {
		t.Fatalf("unexpected resource contents: %q", data[:20])
	}
}

func TestHttpResource(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)
	thisDir := filepath.Dir(thisFile)

	server := httptest.NewServer(http.FileServer(http.Dir(thisDir)))
	defer server.Close()

	fetchUrl := server.URL + "/" + filepath.Base(thisFile)
	res, err := NewResource(fetchUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if !res.IsRemote() {
		t.Fatal("expected a remote resource")
	}
	if res.RemotePath() != filepath.Base(thisFile) {
		t.Fatalf("expected remote path %q; got %q", filepath.Base(thisFile), res.RemotePath())
	}

	fetchUrl = server.URL + "/file-not-found.json"
	expError := fmt.Sprintf("resource: could not fetch '%s': status %d", fetchUrl, 404)
	_, err = NewResource(fetchUrl, nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestRelativeResources(t *testing.T) {
	serverHits := 0
	serverFn := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		if r.URL.Path == "/scenes/room.json" || r.URL.Path == "/scenes/camera.json" {
			w.Write([]byte("{}"))
		} else {
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(serverFn)
	defer server.Close()

	res1, err := NewResource(server.URL+"/scenes/room.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	res2, err := NewResource("camera.json", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}
}

func TestRelativeLocalResource(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res1, err := NewResource(filepath.Join(dir, "a.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	res2, err := NewResource("b.json", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	data, err := res2.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "b.json" {
		t.Fatalf("expected to read b.json; got %q", data)
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	_, err := NewResource("gopher://digging.json", nil)
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme; got %v", err)
	}
}

func TestResourceFromBytes(t *testing.T) {
	res := NewResourceFromBytes("embedded.zip", []byte("payload"))
	defer res.Close()

	if res.Ext() != ".zip" || res.IsRemote() {
		t.Fatalf("unexpected resource metadata: ext %q remote %t", res.Ext(), res.IsRemote())
	}
	data, err := res.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Fatalf("expected payload; got %q", data)
	}
}
