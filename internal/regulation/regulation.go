package regulation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Stage is the Gazette part a regulation was seen in.
type Stage string

const (
	StageProposed Stage = "PROPOSED" // Part I, consultation
	StageEnacted  Stage = "ENACTED"  // Part II, in force
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return s == StageProposed || s == StageEnacted }

// Regulation is one Gazette notice.
type Regulation struct {
	Name           string    `json:"regulation_name"`
	RegistrationID string    `json:"regulation_id,omitempty"`
	Published      time.Time `json:"date_published"`
	Stage          Stage     `json:"stage"`
	Sponsor        string    `json:"sponsor,omitempty"`
	EnablingAct    string    `json:"enabling_act,omitempty"`
	Link           string    `json:"links"`
	RawTitle       string    `json:"raw_title"`
}

// Identified reports whether the record carries a registration number.
func (r Regulation) Identified() bool { return r.RegistrationID != "" }

// Key returns the identity key: "id:<registration>" or "title:<sha256>".
func (r Regulation) Key() string {
	if r.Identified() {
		return "id:" + strings.ToUpper(r.RegistrationID)
	}
	return TitleKey(r.titleForKey())
}

// TitleKey hashes the normalized form of title.
func TitleKey(title string) string {
	sum := sha256.Sum256([]byte(NormalizeTitle(title)))
	return "title:" + hex.EncodeToString(sum[:])
}

func (r Regulation) titleForKey() string {
	if r.RawTitle != "" {
		return r.RawTitle
	}
	return r.Name
}
