package reference

import (
	"regexp"
	"strings"
	"testing"
)

var reRef = regexp.MustCompile(`^PAY-[0-9A-F]{10}$`)

func Test_New_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		ref := New()
		if !reRef.MatchString(ref) {
			t.Fatalf("bad reference format: %q", ref)
		}
		if !strings.HasPrefix(ref, Prefix) {
			t.Fatalf("missing prefix: %q", ref)
		}
	}
}

func Test_New_Distinct(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		ref := New()
		if seen[ref] {
			t.Fatalf("duplicate reference after %d draws: %q", i, ref)
		}
		seen[ref] = true
	}
}
