package bot

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Кодировка start-payload совместима со старыми реферальными ссылками:
// URL-safe base64 без выравнивания.

func encodePayload(value string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

func decodePayload(payload string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return "", fmt.Errorf("bad start payload: %w", err)
	}
	return string(raw), nil
}
