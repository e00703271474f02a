package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// decode reads the body into dto and runs its validate tags. Both failures are InvalidInput.
func decode(r *http.Request, dto any) error {
	if err := readBodyJSON(r, maxBodyBytes, dto); err != nil {
		return domain.Errorf(domain.KindInvalidInput, "malformed JSON body: %v", err)
	}
	if err := validate.Struct(dto); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return domain.Errorf(domain.KindInvalidInput, "%s", strings.Join(msgs, "; "))
		}
		return domain.Errorf(domain.KindInvalidInput, "%v", err)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD. Empty input yields the zero time.
func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, domain.Errorf(domain.KindInvalidInput, "%s must be YYYY-MM-DD", field)
	}
	return t, nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case "":
		return http.StatusInternalServerError
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorizedActor:
		return http.StatusForbidden
	case domain.KindInvalidInput, domain.KindInvalidCriterion:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, status, Fail("internal error"))
		return
	}
	writeJSON(w, status, FailKind(string(domain.KindOf(err)), err.Error()))
}

func writeOK[T any](w http.ResponseWriter, status int, v T) {
	writeJSON(w, status, Ok(v))
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
