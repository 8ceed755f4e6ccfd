package models

import "errors"

// ErrPersonNotFound is returned when a person has no row on a day's schedule sheet.
var ErrPersonNotFound = errors.New("person not found on schedule")
