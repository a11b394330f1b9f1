package model

import (
	"encoding/json"
	"fmt"
)

// Item plaintext schemas. These are what a client encrypts into an
// envelope; the server never decodes them. Each kind carries a schema
// version so a future client can migrate decoded payloads.

// ItemDataVersion is the current plaintext schema version.
const ItemDataVersion = 1

// LoginData is the plaintext payload of an ItemTypeLogin item.
type LoginData struct {
	Version  int    `json:"version"`
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// NoteData is the plaintext payload of an ItemTypeNote item.
type NoteData struct {
	Version int    `json:"version"`
	Text    string `json:"text"`
}

// CardData is the plaintext payload of an ItemTypeCard item.
type CardData struct {
	Version      int    `json:"version"`
	Holder       string `json:"holder"`
	Number       string `json:"number"`
	ExpMonth     int    `json:"expMonth"`
	ExpYear      int    `json:"expYear"`
	SecurityCode string `json:"securityCode,omitempty"`
}

// AttachmentData is the plaintext payload of an ItemTypeAttachment item.
type AttachmentData struct {
	Version  int    `json:"version"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType,omitempty"`
	Content  []byte `json:"content"`
}

// EncodeItemData marshals a typed payload for encryption. The value must
// be one of the *Data types above.
func EncodeItemData(itemType ItemType, data any) ([]byte, error) {
	switch itemType {
	case ItemTypeLogin:
		if _, ok := data.(LoginData); !ok {
			return nil, fmt.Errorf("item type %s requires LoginData", itemType)
		}
	case ItemTypeNote:
		if _, ok := data.(NoteData); !ok {
			return nil, fmt.Errorf("item type %s requires NoteData", itemType)
		}
	case ItemTypeCard:
		if _, ok := data.(CardData); !ok {
			return nil, fmt.Errorf("item type %s requires CardData", itemType)
		}
	case ItemTypeAttachment:
		if _, ok := data.(AttachmentData); !ok {
			return nil, fmt.Errorf("item type %s requires AttachmentData", itemType)
		}
	default:
		return nil, fmt.Errorf("unknown item type: %s", itemType)
	}

	return json.Marshal(data)
}

// DecodeItemData unmarshals a decrypted payload into its typed form.
// Called only after successful decryption.
func DecodeItemData(itemType ItemType, plaintext []byte) (any, error) {
	switch itemType {
	case ItemTypeLogin:
		var d LoginData
		if err := json.Unmarshal(plaintext, &d); err != nil {
			return nil, fmt.Errorf("failed to decode login data: %w", err)
		}
		return d, nil
	case ItemTypeNote:
		var d NoteData
		if err := json.Unmarshal(plaintext, &d); err != nil {
			return nil, fmt.Errorf("failed to decode note data: %w", err)
		}
		return d, nil
	case ItemTypeCard:
		var d CardData
		if err := json.Unmarshal(plaintext, &d); err != nil {
			return nil, fmt.Errorf("failed to decode card data: %w", err)
		}
		return d, nil
	case ItemTypeAttachment:
		var d AttachmentData
		if err := json.Unmarshal(plaintext, &d); err != nil {
			return nil, fmt.Errorf("failed to decode attachment data: %w", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown item type: %s", itemType)
	}
}
