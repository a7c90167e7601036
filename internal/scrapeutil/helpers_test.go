package scrapeutil

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,299.99", 1299.99},
		{"US $12.50", 12.50},
		{"1.299,99 EUR", 1299.99},
		{"24.99", 24.99},
		{"1299", 1299},
		{"free", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParsePrice(tc.in); got != tc.want {
			t.Errorf("ParsePrice(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"1,234 ratings", 1234},
		{"213", 213},
		{"no reviews yet", 0},
	}
	for _, tc := range cases {
		if got := ParseCount(tc.in); got != tc.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestToFloat(t *testing.T) {
	if got := ToFloat(4.5); got != 4.5 {
		t.Errorf("ToFloat(4.5) = %v", got)
	}
	if got := ToFloat("4.5"); got != 4.5 {
		t.Errorf("ToFloat(\"4.5\") = %v", got)
	}
	if got := ToFloat(nil); got != 0 {
		t.Errorf("ToFloat(nil) = %v", got)
	}
}

func TestNormalizeAvailability(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://schema.org/InStock", "in_stock"},
		{"http://schema.org/OutOfStock", "out_of_stock"},
		{"in stock", "in_stock"},
		{"out of stock", "out_of_stock"},
		{"sold out", "out_of_stock"},
		{"PreOrder", "in_stock"},
		{"discontinued", "out_of_stock"},
		{"", "unknown"},
		{"call for price", "unknown"},
	}
	for _, tc := range cases {
		if got := NormalizeAvailability(tc.in); got != tc.want {
			t.Errorf("NormalizeAvailability(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCapImages(t *testing.T) {
	in := []string{
		"https://cdn.example.com/1.jpg",
		"https://cdn.example.com/1.jpg",
		"  ",
		"https://cdn.example.com/2.jpg",
		"https://cdn.example.com/3.jpg",
	}
	out := CapImages(in, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 images, got %v", out)
	}
	if out[0] != "https://cdn.example.com/1.jpg" || out[1] != "https://cdn.example.com/2.jpg" {
		t.Fatalf("unexpected order: %v", out)
	}

	// max <= 0 means no cap, only dedupe.
	out = CapImages(in, 0)
	if len(out) != 3 {
		t.Fatalf("expected 3 deduped images, got %v", out)
	}
}
