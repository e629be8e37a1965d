package bot

import "testing"

func TestPayloadRoundTrip(t *testing.T) {
	for _, id := range []string{"1", "123456789", "7000000001"} {
		got, err := decodePayload(encodePayload(id))
		if err != nil {
			t.Fatalf("decode(%q): %v", id, err)
		}
		if got != id {
			t.Errorf("round trip %q -> %q", id, got)
		}
	}
}

func TestDecodeToleratesPadding(t *testing.T) {
	// Старые ссылки могли прийти с выравниванием.
	got, err := decodePayload("MTIzNDU2Nzg5")
	if err != nil || got != "123456789" {
		t.Fatalf("decode = %q, %v", got, err)
	}
	got, err = decodePayload("MTIz")
	if err != nil || got != "123" {
		t.Fatalf("decode = %q, %v", got, err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := decodePayload("!!!не base64!!!"); err == nil {
		t.Fatal("garbage payload must not decode")
	}
}
