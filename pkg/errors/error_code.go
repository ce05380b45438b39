package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidStrategy      ErrorCode = 102
	ErrCodeInvalidRunRequest    ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInvalidTakeProfit    ErrorCode = 105
	ErrCodeInvalidPositionSize  ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 107
	ErrCodeMissingParameter     ErrorCode = 108
	ErrCodeInvalidVersion       ErrorCode = 109

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeCorruptData           ErrorCode = 203
	ErrCodeUnsupportedDataFormat ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeUnsupportedStrategy ErrorCode = 400
	ErrCodeVersionMismatch     ErrorCode = 401

	// Simulation errors (500-599)
	ErrCodeInvalidTransition ErrorCode = 500
	ErrCodeSimulationFailed  ErrorCode = 501

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError   ErrorCode = 600
	ErrCodeBacktestCancelled     ErrorCode = 601
	ErrCodeBacktestNoDatasource  ErrorCode = 602
	ErrCodeAllSymbolsFailed      ErrorCode = 603
	ErrCodeBacktestCallbackError ErrorCode = 604

	// Persistence errors (700-799)
	ErrCodeStoreFailed  ErrorCode = 700
	ErrCodeRunNotFound  ErrorCode = 701
	ErrCodeExportFailed ErrorCode = 702
)
