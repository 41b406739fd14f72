package services

import "errors"

// Service errors
var (
	ErrRunNotFound         = errors.New("segmentation run not found")
	ErrDownloadUnavailable = errors.New("download table not available for this run")
	ErrInvalidInput        = errors.New("invalid input")
	ErrPersistence         = errors.New("failed to persist segmentation run")
	ErrPublish             = errors.New("failed to publish segmentation run")
)
