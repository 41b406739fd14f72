// Package publisher emits segmentation results as Kafka events.
package publisher
