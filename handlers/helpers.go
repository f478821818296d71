package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Baku-1/kingdom-tournament-sub000/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	idStr := chi.URLParam(r, param)
	id, err := strconv.Atoi(idStr)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s URL parameter", param)
	}
	return id, nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error", slog.String("path", r.URL.Path), slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func paymentRequiredResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusPaymentRequired, message)
}

// mapServiceErrorToHTTP turns the service sentinel taxonomy into stable HTTP
// statuses: validation 400, authorization 401/403, lifecycle 409, custody
// 402, not-found 404.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Not found
	case errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrPositionNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNotRegistered):
		notFoundResponse(w, r)

	// Validation
	case errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrInvalidPositionCount),
		errors.Is(err, services.ErrInvalidPositionAmount),
		errors.Is(err, services.ErrInvalidRewardAsset),
		errors.Is(err, services.ErrInvalidEntryFee),
		errors.Is(err, services.ErrInvalidCapacity),
		errors.Is(err, services.ErrRegistrationEndInPast),
		errors.Is(err, services.ErrStartBeforeRegistrationEnd),
		errors.Is(err, services.ErrRegistrationPeriodTooShort),
		errors.Is(err, services.ErrInvalidWinner),
		errors.Is(err, services.ErrBatchLengthMismatch),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrPasswordTooShort):
		badRequestResponse(w, r, err)

	// Authorization
	case errors.Is(err, services.ErrAuthInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, services.ErrNotCreator),
		errors.Is(err, services.ErrNotWinner):
		forbiddenResponse(w, r, err.Error())

	// Lifecycle
	case errors.Is(err, services.ErrTournamentNotActive),
		errors.Is(err, services.ErrTournamentStillActive),
		errors.Is(err, services.ErrRegistrationClosed),
		errors.Is(err, services.ErrRegistrationStillOpen),
		errors.Is(err, services.ErrTournamentFull),
		errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrEntryFeeRequired),
		errors.Is(err, services.ErrNoEntryFee),
		errors.Is(err, services.ErrNotStarted),
		errors.Is(err, services.ErrAlreadyClaimed),
		errors.Is(err, services.ErrNoWinnerDeclared),
		errors.Is(err, services.ErrFeesAlreadyDistributed),
		errors.Is(err, services.ErrNothingToRefund),
		errors.Is(err, services.ErrWinnerNotParticipant):
		conflictResponse(w, r, err.Error())

	// Custody
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInsufficientAllowance),
		errors.Is(err, services.ErrIncorrectValue):
		paymentRequiredResponse(w, r, err.Error())

	// Conflicts
	case errors.Is(err, services.ErrAuthEmailTaken):
		conflictResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
