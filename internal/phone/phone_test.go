package phone

import "testing"

func TestNormalize_TenDigitGetsUSPrefix(t *testing.T) {
	cases := []string{"5551234567", "(555) 123-4567", "555.123.4567", "555 123 4567"}
	for _, in := range cases {
		out, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected err: %v", in, err)
		}
		if out != "+15551234567" {
			t.Fatalf("Normalize(%q) = %q, want +15551234567", in, out)
		}
	}
}

func TestNormalize_ElevenDigitLeadingOne(t *testing.T) {
	out, err := Normalize("1-555-123-4567")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "+15551234567" {
		t.Fatalf("got %q, want +15551234567", out)
	}
}

func TestNormalize_InternationalRange(t *testing.T) {
	// 12 digits, non-US country code stays untouched apart from the plus.
	out, err := Normalize("+44 20 7946 0958")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "+442079460958" {
		t.Fatalf("got %q, want +442079460958", out)
	}
}

func TestNormalize_RejectsOutOfRange(t *testing.T) {
	for _, in := range []string{"", "555-1234", "123456789", "1234567890123456"} {
		if _, err := Normalize(in); err != ErrNotNormalizable {
			t.Fatalf("Normalize(%q): expected ErrNotNormalizable, got %v", in, err)
		}
	}
}

func TestIsValidE164(t *testing.T) {
	cases := map[string]bool{
		"+1234567890":      true,
		"+15551234567":     true,
		"+442079460958":    true,
		"1234567890":       false, // no plus
		"+0123456789":      false, // leading zero after plus
		"+1":               false, // too short
		"+123456789012345": true,  // 15 digits, the E.164 maximum
		"+1234567890123456": false, // 16 digits
		"+1 555 1234":      false, // spaces are not canonical
	}
	for in, want := range cases {
		if got := IsValidE164(in); got != want {
			t.Fatalf("IsValidE164(%q) = %v, want %v", in, got, want)
		}
	}
}
