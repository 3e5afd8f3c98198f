package main

import "testing"

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name string
		stem string
		want string
	}{
		{
			name: "ascii",
			stem: "report",
			want: `attachment; filename="report.zip"`,
		},
		{
			name: "umlaut gets fallback and utf8 name",
			stem: "Wölwer",
			want: `attachment; filename="Wlwer.zip"; filename*=UTF-8''W%C3%B6lwer.zip`,
		},
		{
			name: "fully non-ascii",
			stem: "文档",
			want: `attachment; filename="__.zip"; filename*=UTF-8''%E6%96%87%E6%A1%A3.zip`,
		},
		{
			name: "empty stem",
			stem: "",
			want: `attachment; filename="download.zip"; filename*=UTF-8''.zip`,
		},
		{
			name: "ascii with space needs no utf8 variant",
			stem: "my report",
			want: `attachment; filename="my report.zip"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentDisposition(tt.stem); got != tt.want {
				t.Errorf("contentDisposition(%q)\n got %s\nwant %s", tt.stem, got, tt.want)
			}
		})
	}
}

func TestContentDisposition_Latin1Safe(t *testing.T) {
	for _, stem := range []string{"résumé", "データ", "a b", "Ünïcödé nämé"} {
		header := contentDisposition(stem)
		for _, r := range header {
			if r > 255 {
				t.Errorf("stem %q: header carries non-latin-1 rune %q: %s", stem, r, header)
			}
		}
	}
}
