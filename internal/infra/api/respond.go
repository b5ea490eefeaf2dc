package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"nova-payments/internal/domain"
)

var validate = validator.New()

// maxBody bounds JSON request bodies.
const maxBody = 64 << 10

type problem struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func WriteProblem(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, problem{Error: msg})
}

// WriteError maps domain errors onto HTTP statuses.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		WriteProblem(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidPaymentState):
		WriteProblem(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrWebhookSecretMissing):
		WriteProblem(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, domain.ErrInvalidPlan),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrInvalidArgument):
		WriteProblem(w, http.StatusBadRequest, err.Error())
	default:
		WriteProblem(w, http.StatusInternalServerError, "internal error")
	}
}

// DecodeJSON reads a bounded body into dst and runs its validate tags.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: missing body", domain.ErrInvalidArgument)
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body", domain.ErrInvalidArgument)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" "+fe.Tag())
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}
