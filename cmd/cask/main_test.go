package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/odvcencio/cask/pkg/cask"
)

// runCask executes the root command with args and returns stdout.
func runCask(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(configEnv, "")
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeFixture writes /root (animated xform over three frames) holding
// /root/body, plus a default camera at /cam. offset moves the body points.
func writeFixture(t *testing.T, dir, name string, offset float32) string {
	t.Helper()
	a := cask.New()
	top := a.Top()

	root := cask.NewXform("root")
	if err := top.AddChild(root); err != nil {
		t.Fatalf("AddChild root: %v", err)
	}
	x, err := root.Xform()
	if err != nil {
		t.Fatalf("Xform: %v", err)
	}
	for i := range 3 {
		if err := x.SetMatrix(cask.Translate44d(cask.V3d{float64(i), 0, 0}), cask.Index(i)); err != nil {
			t.Fatalf("SetMatrix %d: %v", i, err)
		}
	}

	body := cask.NewPolyMesh("body")
	if err := root.AddChild(body); err != nil {
		t.Fatalf("AddChild body: %v", err)
	}
	m, err := body.Mesh()
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}
	pts := []cask.P3f{{offset, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	if err := m.SetPositions(pts, cask.Index(0)); err != nil {
		t.Fatalf("SetPositions: %v", err)
	}
	if err := m.SetFaceIndices([]int32{0, 1, 2}, cask.Index(0)); err != nil {
		t.Fatalf("SetFaceIndices: %v", err)
	}
	if err := m.SetFaceCounts([]int32{3}, cask.Index(0)); err != nil {
		t.Fatalf("SetFaceCounts: %v", err)
	}

	if err := top.AddChild(cask.NewCamera("cam")); err != nil {
		t.Fatalf("AddChild cam: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := a.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := runCask(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "cask "+version+"\n" {
		t.Fatalf("output = %q", out)
	}
}

func TestLsCmd(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "scene.abc", 0)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "top", args: []string{"ls", path}, want: "root\tXform\ncam\tCamera\n"},
		{name: "nested", args: []string{"ls", path, "/root"}, want: "body\tPolyMesh\n"},
		{name: "leaf", args: []string{"ls", path, "/root/body"}, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := runCask(t, tc.args...)
			if err != nil {
				t.Fatalf("ls: %v", err)
			}
			if out != tc.want {
				t.Fatalf("output = %q, want %q", out, tc.want)
			}
		})
	}

	if _, err := runCask(t, "ls", path, "/missing"); err == nil {
		t.Fatal("expected error for a missing path")
	}
	if _, err := runCask(t, "ls", filepath.Join(t.TempDir(), "nope.abc")); err == nil {
		t.Fatal("expected error for a missing archive")
	}
}

func TestTreeCmd(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "scene.abc", 0)

	out, err := runCask(t, "tree", "--color", "never", path)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	want := "ABC [Top]\n  root [Xform]\n    body [PolyMesh]\n  cam [Camera]\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}

	out, err = runCask(t, "tree", "--color", "never", "--depth", "2", path)
	if err != nil {
		t.Fatalf("tree --depth: %v", err)
	}
	if strings.Contains(out, "body") {
		t.Fatalf("depth 2 printed grandchildren: %q", out)
	}

	out, err = runCask(t, "tree", "--color", "always", path, "/root")
	if err != nil {
		t.Fatalf("tree --color always: %v", err)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected escape sequences, got %q", out)
	}
}

func TestInfoCmd(t *testing.T) {
	path := writeFixture(t, t.TempDir(), "scene.abc", 0)

	out, err := runCask(t, "info", path)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	for _, want := range []string{
		"fps:        24\n",
		"frames:     0 - 2\n",
		"objects:    3\n",
		"animated:   1\n",
		"  0  identity\n",
		"  1  uniform(",
		"  Camera     1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
