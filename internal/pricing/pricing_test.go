package pricing

import "testing"

func TestCreditsRequired(t *testing.T) {
	cases := []struct {
		minutes int
		want    int
	}{
		{0, 1},
		{12, 1},
		{20, 1},
		{21, 2},
		{45, 2},
		{46, 3},
		{90, 3},
		{240, 3},
	}
	for _, c := range cases {
		if got := CreditsRequired(c.minutes); got != c.want {
			t.Errorf("CreditsRequired(%d) = %d, want %d", c.minutes, got, c.want)
		}
	}
}

func TestMaxFileMB(t *testing.T) {
	if got := MaxFileMB(15); got != 150 {
		t.Errorf("MaxFileMB(15) = %d, want 150", got)
	}
	if got := MaxFileMB(60); got != 500 {
		t.Errorf("MaxFileMB(60) = %d, want 500", got)
	}
	if got := MaxFileMB(500); got != 500 {
		t.Errorf("MaxFileMB(500) = %d, want 500", got)
	}
}

func TestPackageByID(t *testing.T) {
	p := PackageByID("value")
	if p == nil {
		t.Fatal("expected value package")
	}
	if p.Credits != 30 || p.Price != 249000 || !p.IsPopular {
		t.Errorf("unexpected value package: %+v", p)
	}
	if PackageByID("enterprise") != nil {
		t.Error("expected nil for unknown package")
	}
}

func TestFormatPrice(t *testing.T) {
	cases := map[int]string{
		0:       "Rp 0",
		500:     "Rp 500",
		99000:   "Rp 99.000",
		249000:  "Rp 249.000",
		1449000: "Rp 1.449.000",
	}
	for amount, want := range cases {
		if got := FormatPrice(amount); got != want {
			t.Errorf("FormatPrice(%d) = %q, want %q", amount, got, want)
		}
	}
}
