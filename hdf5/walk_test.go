package hdf5

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitPathUtil(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{}},
		{"/foo", []string{"foo"}},
		{"/foo/bar", []string{"foo", "bar"}},
		{"/a/b/c", []string{"a", "b", "c"}},
		{"foo/bar/", []string{"foo", "bar"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitPath(tt.path)); diff != "" {
				t.Errorf("SplitPath(%q) (-want +got):\n%s", tt.path, diff)
			}
		})
	}
}

func TestCleanAndJoinPath(t *testing.T) {
	if got := CleanPath("a/b/"); got != "/a/b" {
		t.Errorf("CleanPath = %q", got)
	}
	if got := CleanPath(""); got != "/" {
		t.Errorf("CleanPath empty = %q", got)
	}
	if got := JoinPath("/", "x"); got != "/x" {
		t.Errorf("JoinPath root = %q", got)
	}
	if got := JoinPath("/a", "x"); got != "/a/x" {
		t.Errorf("JoinPath = %q", got)
	}
}

func TestWalk(t *testing.T) {
	f, err := Create(filepath.Join(t.TempDir(), "walk.h5"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()

	g, err := f.Root().RequireGroup("dataset/data")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.CreateDataset("values", []float32{1, 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Root().CreateDataset("top", []int8{1}); err != nil {
		t.Fatal(err)
	}

	var visited []string
	err = Walk(f.Root(), func(path string, obj any, err error) error {
		if err != nil {
			return err
		}
		switch obj.(type) {
		case *Group:
			visited = append(visited, "G "+path)
		case *Dataset:
			visited = append(visited, "D "+path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	want := []string{"G /", "G /dataset", "G /dataset/data", "D /dataset/data/values", "D /top"}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Errorf("walk order (-want +got):\n%s", diff)
	}

	count := 0
	err = Walk(f.Root(), func(string, any, error) error {
		count++
		if count == 2 {
			return ErrStopWalk
		}
		return nil
	})
	if err != nil || count != 2 {
		t.Errorf("stopped walk: err %v after %d calls", err, count)
	}

	boom := errors.New("boom")
	if err := Walk(f.Root(), func(string, any, error) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Walk = %v, want callback error", err)
	}
}
