package manifest_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mpsync/core/manifest"
)

func TestParseAliases(t *testing.T) {
	tests := []struct {
		desc string
		json string
		want manifest.Entry
	}{
		{
			desc: "canonical fields",
			json: `{"packageName":"p","version":"1","createdAt":"2024-01-01T00:00:00Z","files":[
				{"name":"a.txt","downloadUrl":"https://h/a.txt","relativePath":"a.txt","hash":"DISABLED","size":5,"fileType":"file"}
			]}`,
			want: manifest.Entry{Name: "a.txt", DownloadURL: "https://h/a.txt", RelativePath: "a.txt", Hash: "DISABLED", Size: 5, FileType: manifest.FileTypeFile},
		},
		{
			desc: "legacy aliases",
			json: `{"package_name":"p","version":"1","createdAt":"2024-01-01T00:00:00Z","files":[
				{"name":"mods.zip","url":"https://h/mods.zip","relative_path":"mods.zip","hash":"DISABLED","size":10,"type":"update_package","auto_extract":true}
			]}`,
			want: manifest.Entry{Name: "mods.zip", DownloadURL: "https://h/mods.zip", RelativePath: "mods.zip", Hash: "DISABLED", Size: 10, FileType: manifest.FileTypeUpdatePackage, AutoExtract: true},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			m, err := manifest.Parse([]byte(test.json))
			if err != nil {
				t.Fatalf("Parse(): %v", err)
			}
			if len(m.Entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(m.Entries))
			}
			if diff := cmp.Diff(test.want, m.Entries[0]); diff != "" {
				t.Errorf("entry mismatch (-want +got):\n%s", diff)
			}
			wantCreated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			if !m.CreatedAt.Equal(wantCreated) {
				t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, wantCreated)
			}
		})
	}
}

func TestValidateRejectsBadPaths(t *testing.T) {
	tests := []struct {
		desc string
		path string
	}{
		{desc: "absolute path", path: "/etc/passwd"},
		{desc: "dot-dot component", path: "../../etc/passwd"},
		{desc: "empty path", path: ""},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			m := &manifest.Manifest{
				PackageName: "p",
				Version:     "1",
				Entries: []manifest.Entry{
					{Name: "x", RelativePath: test.path, Hash: "DISABLED", FileType: manifest.FileTypeFile},
				},
			}
			if err := m.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error for path %q", test.path)
			}
		})
	}
}

func TestValidateRejectsDuplicatePaths(t *testing.T) {
	m := &manifest.Manifest{
		Entries: []manifest.Entry{
			{Name: "a", RelativePath: "mods/a.jar", Hash: "DISABLED", FileType: manifest.FileTypeFile},
			{Name: "a2", RelativePath: "mods/a.jar", Hash: "DISABLED", FileType: manifest.FileTypeFile},
		},
	}
	if err := m.Validate(); err == nil {
		t.Error("Validate() = nil, want error for duplicate relativePath")
	}
}

func TestTopLevelDirs(t *testing.T) {
	m := &manifest.Manifest{
		Entries: []manifest.Entry{
			{RelativePath: "mods/a.jar"},
			{RelativePath: "mods/b.jar"},
			{RelativePath: "config/opts.txt"},
			{RelativePath: "mods.zip"},
		},
	}
	got := m.TopLevelDirs()
	want := []string{"mods", "config", "mods.zip"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopLevelDirs() mismatch (-want +got):\n%s", diff)
	}
}
