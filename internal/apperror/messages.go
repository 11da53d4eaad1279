package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeBlockNotFound:            "Block not found",
	CodeGasEstimationFailed:      "Gas estimation failed",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Adapter registry errors
	CodeInvalidDexKey: "Unknown dex key",

	// Pricing coordinator errors
	CodeAdapterTimeout:       "Adapter call exceeded its deadline",
	CodeAdapterInternal:      "Adapter call failed",
	CodeInvalidCalldataGas:   "Adapter returned a mixed scalar/sequence calldata gas cost",
	CodeFeeOnTransferSkipped: "Adapter does not support fee-on-transfer tokens",

	// Quote validation errors
	CodeInvalidQuoteShape: "Quote shape failed validation",
	CodeAllZeroPrices:     "All price entries are zero",

	// Lifecycle manager errors
	CodeLifecycleFailure: "Adapter lifecycle operation failed",

	// AMM math / pool state errors
	CodeReserveOverflow:         "Reserve would exceed the overflow guard",
	CodePoolStateNotFound:       "No committed pool state at or before the requested block",
	CodeVirtualPoolUncomputable: "Virtual pool legs share no common token or differ in block reference",

	// Cache errors
	CodeCacheMiss:    "Cache miss",
	CodeCacheExpired: "Cache entry expired",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
