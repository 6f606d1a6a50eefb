package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mediasort/pkg/testsupport"
)

func newTestServer(t *testing.T, dir string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(NewHandler(dir, nil)))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestIndexListsStagingDirectory(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "b.jpg"), []byte("b"))
	testsupport.WriteFile(t, filepath.Join(dir, "a.jpg"), []byte("a"))
	srv := newTestServer(t, dir)

	var got IndexResponse
	if code := getJSON(t, srv.URL+"/", &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got.NumFiles != 2 || got.ImagesBasePath != dir {
		t.Fatalf("index = %+v", got)
	}
	if got.AllFiles[0] != "a.jpg" || got.AllFiles[1] != "b.jpg" {
		t.Fatalf("all_files = %v", got.AllFiles)
	}
}

func TestImageByIndex(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "a.jpg"), []byte("a"))
	testsupport.WriteFile(t, filepath.Join(dir, "b.jpg"), []byte("b"))
	srv := newTestServer(t, dir)

	var got ImageResponse
	if code := getJSON(t, srv.URL+"/1", &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := ImageResponse{Successful: true, ImgName: "b.jpg", AbsImgPath: filepath.Join(dir, "b.jpg")}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	got = ImageResponse{}
	if code := getJSON(t, srv.URL+"/2", &got); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if got.Successful || got.ImgName != "" {
		t.Fatalf("out of range = %+v", got)
	}
}

func TestImageRejectsNonInteger(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	if code := getJSON(t, srv.URL+"/abc", nil); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestIndexMissingDirectory(t *testing.T) {
	srv := newTestServer(t, filepath.Join(t.TempDir(), "gone"))
	if code := getJSON(t, srv.URL+"/", nil); code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}
}
