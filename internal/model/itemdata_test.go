package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeItemData_RejectsMismatchedPayload(t *testing.T) {
	_, err := EncodeItemData(ItemTypeLogin, NoteData{Version: ItemDataVersion, Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires LoginData")

	_, err = EncodeItemData(ItemType("bookmark"), NoteData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown item type")
}

func TestDecodeItemData_UnknownType(t *testing.T) {
	_, err := DecodeItemData(ItemType("bookmark"), []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown item type")
}

func TestItemData_RoundTrip(t *testing.T) {
	in := CardData{Version: ItemDataVersion, Holder: "A B", Number: "4111", ExpMonth: 12, ExpYear: 2030, SecurityCode: "123"}
	raw, err := EncodeItemData(ItemTypeCard, in)
	require.NoError(t, err)

	out, err := DecodeItemData(ItemTypeCard, raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
