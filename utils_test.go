package http2

import (
	"testing"
)

func TestB2sS2bRoundTrip(t *testing.T) {
	str := "8971293nfasv7asnrnqw9bma 237urkf8KifgiMKFG98UIM8fgnb kifgnrA7JKLK"

	b := s2b(str)
	if len(b) != len(str) {
		t.Fatalf("unexpected len: %d<>%d", len(b), len(str))
	}

	if got := b2s(b); got != str {
		t.Fatalf("unexpected roundtrip: %s<>%s", got, str)
	}
}

func BenchmarkB2s(b *testing.B) {
	str := []byte("8971293nfasv7asnrnqw9bma 237urkf8KifgiMKFG98UIM8fgnb kifgnrA7JKLK")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if len(b2s(str)) == 0 {
			b.Fatal("wrong conversion")
		}
	}
}
