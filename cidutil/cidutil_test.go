package cidutil

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint([]byte("Hello, world!"))
	b := Fingerprint([]byte("Hello, world!"))
	if a == "" {
		t.Fatalf("expected non-empty fingerprint")
	}
	if a != b {
		t.Fatalf("fingerprint not deterministic: %s vs %s", a, b)
	}
	if c := Fingerprint([]byte("Hello, world")); c == a {
		t.Fatalf("different content produced the same fingerprint")
	}
}

func TestFingerprintMatchesCIDForm(t *testing.T) {
	data := []byte("some content")
	id, err := FingerprintCID(data)
	if err != nil {
		t.Fatalf("FingerprintCID: %v", err)
	}
	if string(Fingerprint(data)) != id.String() {
		t.Fatalf("string and CID forms disagree")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	id, err := FingerprintCID([]byte("x"))
	if err != nil {
		t.Fatalf("FingerprintCID: %v", err)
	}
	got, err := Decode(id.String())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != id {
		t.Fatalf("round trip mismatch")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("not-a-cid"); err == nil {
		t.Fatalf("expected error for garbage input")
	}
	if _, err := Decode(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
