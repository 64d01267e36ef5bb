package models

const (
	// HeaderUserID идентифицирует пользователя, от имени которого выполняется запрос
	HeaderUserID = "X-Sharer-User-Id"

	// HeaderRequestID сквозной идентификатор запроса между gateway и сервером
	HeaderRequestID = "X-Request-ID"

	// HealthServiceName имя сервиса в gRPC health протоколе сервера
	HealthServiceName = "shareit.Server"

	// DefaultPageSize размер страницы по умолчанию
	DefaultPageSize = 10

	// DefaultRateLimitRequests количество запросов пользователя в окне
	DefaultRateLimitRequests = 120

	// DefaultRateLimitWindow окно ограничения частоты запросов
	DefaultRateLimitWindow = 60 // 1 минута в секундах
)
