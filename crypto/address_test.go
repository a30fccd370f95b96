package crypto

import "testing"

func TestAddressRoundTrip(t *testing.T) {
	raw := [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	addr := FromRaw(raw)
	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Raw() != raw {
		t.Fatalf("unexpected bytes %x", decoded.Bytes())
	}
	if decoded.Prefix() != AccountPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestParseAddressHex(t *testing.T) {
	addr, err := ParseAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr.Raw()[0] != 1 || addr.Raw()[19] != 0x14 {
		t.Fatalf("unexpected bytes %x", addr.Bytes())
	}
	if _, err := ParseAddress("0x0102"); err == nil {
		t.Fatalf("expected length error")
	}
	if _, err := ParseAddress(""); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestLabelAddressNormalises(t *testing.T) {
	a := LabelAddress(AccountPrefix, "Alice")
	b := LabelAddress(AccountPrefix, " alice ")
	if a.Raw() != b.Raw() {
		t.Fatalf("labels should map to the same account")
	}
	if a.Raw() == LabelAddress(AccountPrefix, "bob").Raw() {
		t.Fatalf("distinct labels collided")
	}
}
