package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// GenesisHash is the previous_hash of the first entry in every user chain.
var GenesisHash = strings.Repeat("0", 64)

// canonicalEntry fixes field order and formatting of the hashed content.
type canonicalEntry struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	EntryType           string          `json:"entry_type"`
	ReferenceTable      string          `json:"reference_table"`
	ReferenceID         string          `json:"reference_id"`
	AmountDelta         string          `json:"amount_delta"`
	ActiveDepositsDelta string          `json:"active_deposits_delta"`
	BalanceAfter        string          `json:"balance_after"`
	ActiveDepositsAfter string          `json:"active_deposits_after"`
	Metadata            json.RawMessage `json:"metadata"`
	CreatedAt           string          `json:"created_at"`
}

// Canonical serialises the hashed fields of e. Decimals are fixed at two
// places, timestamps are UTC at microsecond precision and metadata keys are
// sorted, so the output survives a round trip through Postgres or MySQL.
func Canonical(e *Entry) ([]byte, error) {
	meta, err := canonicalJSON(e.Metadata)
	if err != nil {
		return nil, err
	}
	return json.Marshal(canonicalEntry{
		ID:                  e.ID,
		UserID:              e.UserID,
		EntryType:           string(e.EntryType),
		ReferenceTable:      e.ReferenceTable,
		ReferenceID:         e.ReferenceID,
		AmountDelta:         e.AmountDelta.StringFixed(2),
		ActiveDepositsDelta: e.ActiveDepositsDelta.StringFixed(2),
		BalanceAfter:        e.BalanceAfter.StringFixed(2),
		ActiveDepositsAfter: e.ActiveDepositsAfter.StringFixed(2),
		Metadata:            meta,
		CreatedAt:           NormalizeTime(e.CreatedAt).Format(time.RFC3339Nano),
	})
}

// ComputeHash returns hex(sha256(previousHash + "\n" + Canonical(e))).
func ComputeHash(previousHash string, e *Entry) (string, error) {
	body, err := Canonical(e)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(previousHash))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NormalizeTime is the stored precision of created_at.
func NormalizeTime(t time.Time) time.Time { return t.UTC().Truncate(time.Microsecond) }

func canonicalJSON(raw []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// encoding/json sorts map keys.
	out, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return out, nil
}
