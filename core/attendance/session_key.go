package attendance

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// SessionKeyColumn is the first column of every course table.
	SessionKeyColumn = "day_time"

	dateLayout   = "02-01-2006"
	dbDateLayout = "2006-01-02"
)

var ErrInvalidSessionKey = errors.New("invalid session key")

// Mark is the attendance of one student at one session.
type Mark string

const (
	Present Mark = "P"
	Absent  Mark = "A"
)

func (m Mark) Valid() bool { return m == Present || m == Absent }

// SessionKey identifies one class meeting of a course: a civil date and a 4-digit time slot.
// Its text form is DD-MM-YYYY-HHMM.
type SessionKey struct {
	Date time.Time // midnight UTC
	Slot string
}

func NewSessionKey(date time.Time, slot string) (SessionKey, error) {
	s, err := NormalizeSlot(slot)
	if err != nil {
		return SessionKey{}, err
	}
	y, m, d := date.Date()
	return SessionKey{Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Slot: s}, nil
}

// ParseSessionKey parses "DD-MM-YYYY-HMM" or "DD-MM-YYYY-HHMM":
// the first three dash-separated fields are the date, the last one the time slot.
func ParseSessionKey(s string) (SessionKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 {
		return SessionKey{}, errors.Wrapf(ErrInvalidSessionKey, "%q: want DD-MM-YYYY-HHMM", s)
	}
	date, err := time.Parse("2-1-2006", strings.Join(parts[:3], "-"))
	if err != nil {
		return SessionKey{}, errors.Wrapf(ErrInvalidSessionKey, "%q: bad date", s)
	}
	key, err := NewSessionKey(date, parts[3])
	if err != nil {
		return SessionKey{}, errors.Wrapf(err, "%q", s)
	}
	return key, nil
}

// ParseDBSessionKey builds a SessionKey from its stored columns.
func ParseDBSessionKey(date, slot string) (SessionKey, error) {
	d, err := time.Parse(dbDateLayout, date)
	if err != nil {
		return SessionKey{}, errors.Wrapf(ErrInvalidSessionKey, "stored date %q", date)
	}
	return NewSessionKey(d, slot)
}

// NormalizeSlot validates a time slot and left-pads 3-digit slots ("900" -> "0900").
func NormalizeSlot(slot string) (string, error) {
	slot = strings.TrimSpace(slot)
	if len(slot) == 3 {
		slot = "0" + slot
	}
	if len(slot) != 4 {
		return "", errors.Wrapf(ErrInvalidSessionKey, "bad time slot %q", slot)
	}
	n, err := strconv.Atoi(slot)
	if err != nil || n < 0 || n/100 > 23 || n%100 > 59 {
		return "", errors.Wrapf(ErrInvalidSessionKey, "bad time slot %q", slot)
	}
	return slot, nil
}

func (k SessionKey) IsZero() bool { return k.Date.IsZero() && k.Slot == "" }

// DateString is the DD-MM-YYYY form used as calendar row key.
func (k SessionKey) DateString() string { return k.Date.Format(dateLayout) }

// DBDate is the ISO form stored in the sessions table.
func (k SessionKey) DBDate() string { return k.Date.Format(dbDateLayout) }

func (k SessionKey) Weekday() time.Weekday { return k.Date.Weekday() }

func (k SessionKey) String() string { return k.DateString() + "-" + k.Slot }

func (k SessionKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *SessionKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	key, err := ParseSessionKey(s)
	if err != nil {
		return err
	}
	*k = key
	return nil
}
