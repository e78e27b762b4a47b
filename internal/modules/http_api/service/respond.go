package service

import (
	"io"
	"net/http"

	"mt5_gateway/internal/models"
	"mt5_gateway/pkg/logger"

	"github.com/bytedance/sonic"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("[HTTP] marshal response: %v", err)
		http.Error(w, `{"success":false,"message":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError статус берётся из вида ошибки, тело всегда OperationResult.
func writeError(w http.ResponseWriter, err error) {
	res := models.Failed(err)
	status := models.KindOf(err).HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("[HTTP] %s", res.Message)
	}
	writeJSON(w, status, res)
}

// decode читает JSON-тело; пустое тело допустимо, если optional.
func (s *Server) decode(r *http.Request, dst any, optional bool) (bool, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return false, models.WrapError(models.KindValidation, "unable to read request body", err)
	}
	if len(raw) == 0 {
		if optional {
			return false, nil
		}
		return false, models.NewError(models.KindValidation, "request body is required")
	}
	if err := sonic.Unmarshal(raw, dst); err != nil {
		return false, models.WrapError(models.KindValidation, "malformed JSON body", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return false, validationError(err)
	}
	return true, nil
}
