package constants

import "github.com/go-playground/validator/v10"

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	ParamsKey    ContextKey = "params"
	RequestStart ContextKey = "request_start"
	RequestIDKey ContextKey = "request_id"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
