package data

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidDateFormat is returned when a date field cannot be parsed from
// its JSON form.
var ErrInvalidDateFormat = errors.New("invalid date format")

const dateLayout = "2006-01-02"

// Date is a calendar day without a time component, serialised as
// "YYYY-MM-DD" in JSON. Wedding dates and calendar events use it so clients
// never have to deal with timezone offsets shifting the day.
type Date time.Time

// NewDate truncates a time to its calendar day.
func NewDate(t time.Time) Date {
	return Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return time.Time(d).IsZero()
}

// Time returns the underlying time value at midnight UTC.
func (d Date) Time() time.Time {
	return time.Time(d)
}

// MarshalJSON renders the date as a quoted "YYYY-MM-DD" string. The zero
// value renders as null so optional dates stay optional on the wire.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	quoted := strconv.Quote(time.Time(d).Format(dateLayout))
	return []byte(quoted), nil
}

// UnmarshalJSON parses a quoted "YYYY-MM-DD" string or null.
func (d *Date) UnmarshalJSON(jsonValue []byte) error {
	if string(jsonValue) == "null" || string(jsonValue) == `""` {
		*d = Date{}
		return nil
	}

	unquoted, err := strconv.Unquote(string(jsonValue))
	if err != nil {
		return ErrInvalidDateFormat
	}

	parsed, err := time.Parse(dateLayout, unquoted)
	if err != nil {
		return ErrInvalidDateFormat
	}

	*d = Date(parsed)
	return nil
}

// String implements fmt.Stringer for logging.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return time.Time(d).Format(dateLayout)
}

// Value implements driver.Valuer so dates can be passed straight to queries.
func (d Date) Value() (interface{}, error) {
	if d.IsZero() {
		return nil, nil
	}
	return time.Time(d), nil
}

// Scan implements sql.Scanner for reading DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		parsed, err := time.Parse(dateLayout, string(v))
		if err != nil {
			return ErrInvalidDateFormat
		}
		*d = Date(parsed)
		return nil
	case string:
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			return ErrInvalidDateFormat
		}
		*d = Date(parsed)
		return nil
	default:
		return fmt.Errorf("unsupported scan type for Date: %T", src)
	}
}
