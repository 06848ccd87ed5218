package worker

import "errors"

// Ошибки пула воркеров.
var (
	// ErrAlreadyRunning — Start вызван, пока пул работает или не дождался остановки воркеров.
	ErrAlreadyRunning = errors.New("worker pool is already running")

	// ErrShutdownTimeout — воркеры не остановились за ShutdownWait.
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")
)
