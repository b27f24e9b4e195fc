package schema

import "testing"

func TestParseMediaKind(t *testing.T) {
	tests := []struct {
		declared string
		want     MediaKind
	}{
		{"pdf", KindPaginated},
		{"PDF", KindPaginated},
		{"application/pdf", KindPaginated},
		{".pdf", KindPaginated},
		{"image/png", KindRaster},
		{"IMAGE/JPEG", KindRaster},
		{"jpg", KindRaster},
		{"jpeg", KindRaster},
		{"webp", KindRaster},
		{"gif", KindRaster},
		{"paginated-document", KindPaginated},
		{"raster-image", KindRaster},
		{"Raster-Image", KindRaster},
		{"image/tiff", KindRaster},
		{"image/svg+xml", KindUnsupported},
		{"image/heic", KindUnsupported},
		{"unsupported", KindUnsupported},
		{"xlsx", KindUnsupported},
		{"application/zip", KindUnsupported},
		{"dwg", KindUnsupported},
		{"", KindUnsupported},
		{"   ", KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			if got := ParseMediaKind(tt.declared); got != tt.want {
				t.Errorf("ParseMediaKind(%q) = %s, want %s", tt.declared, got, tt.want)
			}
		})
	}
}

func TestKindForDocumentFallsBackToFileName(t *testing.T) {
	if got := KindForDocument("", "sheet-A1.PDF"); got != KindPaginated {
		t.Fatalf("expected paginated from file name, got %s", got)
	}
	if got := KindForDocument("png", "whatever.dwg"); got != KindRaster {
		t.Fatalf("declared type should win, got %s", got)
	}
	if got := KindForDocument("dwg", "plan.dwg"); got != KindUnsupported {
		t.Fatalf("expected unsupported, got %s", got)
	}
}

func TestFallbackIcon(t *testing.T) {
	cases := map[string]string{
		"pdf":  "pdf",
		"png":  "image",
		"jpeg": "image",
		"dxf":  "file",
		"":     "file",
	}
	for fileType, want := range cases {
		if got := FallbackIcon(fileType); got != want {
			t.Errorf("FallbackIcon(%q) = %s, want %s", fileType, got, want)
		}
	}
}
