package service

import (
	"fmt"

	"mt5_gateway/internal/models"
)

// TRADE_RETCODE_*
const (
	RetcodePlaced            = 10008
	RetcodeDone              = 10009
	RetcodeInvalidVolume     = 10004
	RetcodeContextBusy       = 10006
	RetcodeInvalidStops      = 10016
	RetcodeInvalidRequest    = 10030
	RetcodeInvalidPrice      = 10031
	RetcodeInvalidExpiration = 10032
)

type retcodeInfo struct {
	label     string
	success   bool
	retryable bool
}

// Единственная таблица кодов, других сравнений с retcode в коде нет.
var retcodes = map[int]retcodeInfo{
	RetcodeDone:              {label: "Done", success: true},
	RetcodePlaced:            {label: "Order placed", success: true},
	RetcodeInvalidVolume:     {label: "Invalid volume"},
	RetcodeContextBusy:       {label: "Trade context busy", retryable: true},
	RetcodeInvalidStops:      {label: "Invalid stops"},
	RetcodeInvalidRequest:    {label: "Invalid request"},
	RetcodeInvalidPrice:      {label: "Invalid price"},
	RetcodeInvalidExpiration: {label: "Invalid expiration"},
}

// Outcome класс ответа брокера.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFailure
	OutcomeUnknown
)

// Classify раскладывает код по классам.
func Classify(code int) Outcome {
	info, ok := retcodes[code]
	switch {
	case !ok:
		return OutcomeUnknown
	case info.success:
		return OutcomeSuccess
	case info.retryable:
		return OutcomeRetryable
	default:
		return OutcomeFailure
	}
}

func IsSuccess(code int) bool { return Classify(code) == OutcomeSuccess }

// Describe человекочитаемая метка кода.
func Describe(code int) string {
	if info, ok := retcodes[code]; ok {
		return info.label
	}
	return fmt.Sprintf("Unknown error (%d)", code)
}

// Interpret nil для успешного ответа, иначе ошибка вида failKind с кодом, меткой и
// комментарием брокера. Незнакомый код всегда KindUnknown.
func Interpret(res *models.TradeResult, failKind models.ErrorKind, action string) error {
	if res == nil {
		return models.NewError(failKind, action+" failed: empty result from terminal")
	}
	outcome := Classify(res.Retcode)
	if outcome == OutcomeSuccess {
		return nil
	}

	kind := failKind
	if outcome == OutcomeUnknown {
		kind = models.KindUnknown
	}
	msg := fmt.Sprintf("%s failed (%d): %s", action, res.Retcode, Describe(res.Retcode))
	if res.Comment != "" {
		msg += ", " + res.Comment
	}
	return &models.Error{
		Kind:      kind,
		Message:   msg,
		Retcode:   res.Retcode,
		Retryable: outcome == OutcomeRetryable,
	}
}
