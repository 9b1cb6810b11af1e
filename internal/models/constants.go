package models

import "time"

const (
	ConfirmationImmediate = "immediate"
	ConfirmationHold      = "hold"
)

const (
	// DefaultHoldWindow сколько держится неподтвержденная бронь
	DefaultHoldWindow = 10 * time.Minute

	// DefaultMaxDuration максимальная длительность одной брони
	DefaultMaxDuration = 24 * time.Hour

	// DefaultMaxAdvance насколько далеко вперед можно бронировать
	DefaultMaxAdvance = 365 * 24 * time.Hour

	// DefaultStorageTimeout таймаут одного обращения к хранилищу
	DefaultStorageTimeout = 5 * time.Second

	// DefaultSweepInterval период фоновой проверки истекших броней
	DefaultSweepInterval = 30 * time.Second

	// DefaultSweepBatch сколько записей обрабатывается за один проход
	DefaultSweepBatch = 200

	// DefaultResourceCacheTTL время жизни кэша ресурсов каталога
	DefaultResourceCacheTTL = 5 * time.Minute
)
