package repository

import "errors"

var ErrAllRowsFailed = errors.New("every row in the batch failed to insert")
