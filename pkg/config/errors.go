package config

import "errors"

var (
	// ErrInvalidBus indicates a bus preset or index the host does not have
	ErrInvalidBus = errors.New("invalid SPI bus")

	// ErrInvalidPin indicates a negative or duplicate pin number
	ErrInvalidPin = errors.New("invalid pin")

	// ErrUnknownDriver indicates a GPIO driver name other than periph or gpiod
	ErrUnknownDriver = errors.New("unknown GPIO driver")

	// ErrInvalidTiming indicates a non-positive wait or poll interval
	ErrInvalidTiming = errors.New("invalid timing")

	// ErrInvalidSession indicates out of range session settings
	ErrInvalidSession = errors.New("invalid session settings")
)
