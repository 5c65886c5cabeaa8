package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestDoSourcePath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Query().Get("source-path"))
		fmt.Fprintf(w, ")]}'\n"+`[["wrb.fr",%q,"[[]]",null,null,null,"generic"]]`, r.URL.Query().Get("rpcids"))
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	cfg := Config(u.Host, "tok", "SID=x")
	cfg.UseHTTP = true
	c := NewWithConfig(cfg)

	ctx := context.Background()
	if _, err := c.Do(ctx, Call{ID: RPCListRecentlyViewedProjects}); err != nil {
		t.Fatal(err)
	}
	data, err := c.Do(ctx, Call{ID: RPCGetProject, NotebookID: "nb1"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[[]]" {
		t.Errorf("Do() = %s, want [[]]", data)
	}
	// The per-call source path must not leak into later calls.
	if _, err := c.Do(ctx, Call{ID: RPCListRecentlyViewedProjects}); err != nil {
		t.Fatal(err)
	}
	want := []string{"/", "/notebook/nb1", "/"}
	if fmt.Sprint(paths) != fmt.Sprint(want) {
		t.Errorf("source-path sequence = %v, want %v", paths, want)
	}
}

func TestConfig(t *testing.T) {
	cfg := Config(DefaultHost, "tok", "c=1")
	if cfg.App != "LabsTailwindUi" {
		t.Errorf("App = %q", cfg.App)
	}
	if got := cfg.Headers["origin"]; got != "https://notebooklm.google.com" {
		t.Errorf("origin = %q", got)
	}
}
