package errors

import "net/http"

const (
	CodeInput      = "INPUT_ERROR"
	CodeSchema     = "SCHEMA_ERROR"
	CodeParse      = "PARSE_ERROR"
	CodeAssembly   = "ASSEMBLY_ERROR"
	CodeIO         = "IO_ERROR"
	CodeNetwork    = "NETWORK_ERROR"
	CodeConflation = "CONFLATION_ERROR"
)

var (
	// ErrInput - некорректный AOI, zoom, отсутствующий YAML, нечитаемая таблица
	ErrInput = New(
		CodeInput,
		"Invalid input",
		http.StatusBadRequest,
	)

	// ErrSchema - неожиданная структура XLSForm, работа продолжается без типов полей
	ErrSchema = New(
		CodeSchema,
		"Unexpected form schema",
		http.StatusUnprocessableEntity,
	)

	ErrParse = New(
		CodeParse,
		"Submission could not be parsed",
		http.StatusUnprocessableEntity,
	)

	ErrAssembly = New(
		CodeAssembly,
		"Feature could not be assembled",
		http.StatusUnprocessableEntity,
	)

	ErrIO = New(
		CodeIO,
		"Disk operation failed",
		http.StatusInternalServerError,
	)

	ErrNetwork = New(
		CodeNetwork,
		"Download failed",
		http.StatusBadGateway,
	)

	ErrConflation = New(
		CodeConflation,
		"Reference query failed",
		http.StatusInternalServerError,
	)
)

var (
	ErrNotFound = New(
		"NOT_FOUND",
		"Resource not found",
		http.StatusNotFound,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
