package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/windfall/drill_service/internal/errors"
	"github.com/windfall/drill_service/internal/middleware"
	"github.com/windfall/drill_service/internal/service"
	"github.com/windfall/drill_service/pkg/response"
)

// MaxUploadBytes bounds multipart uploads.
const MaxUploadBytes = 25 << 20

// AudioField is the multipart field carrying the recording.
const AudioField = "file"

func handleError(log zerolog.Logger, w http.ResponseWriter, err error) {
	appErr := errors.From(err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", string(appErr.Code)).Msg("Request failed")
	}
	response.FromError(w, err)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		return errors.Validation("invalid request body")
	}
	return nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Validation(name + " must be an integer")
	}
	return v, nil
}

// readAttempt parses the multipart form and reads the recording.
func readAttempt(w http.ResponseWriter, r *http.Request) (service.Attempt, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return service.Attempt{}, errors.Validation("failed to parse multipart form")
	}

	file, header, err := r.FormFile(AudioField)
	if err != nil {
		return service.Attempt{}, errors.Validation(AudioField + " is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return service.Attempt{}, errors.Validation("failed to read audio file")
	}
	return service.Attempt{Audio: data, Filename: header.Filename}, nil
}

// ParseWords accepts a JSON array of strings or a comma separated list.
func ParseWords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var words []string
		if err := json.Unmarshal([]byte(raw), &words); err == nil {
			return trimAll(words)
		}
	}
	return trimAll(strings.Split(raw, ","))
}

func trimAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func callerID(r *http.Request) string {
	return middleware.GetCallerID(r.Context())
}
