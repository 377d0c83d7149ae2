package repository

import "errors"

var ErrNotFound = errors.New("connection not found")
