package middlewares

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stockplus/backend/config"
)

type ResponseWriter struct {
	Writer   http.ResponseWriter
	Logger   *log.Entry
	Language string
}

func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		Writer:   w,
		Logger:   config.GetLogger(r.Context()),
		Language: Language.English,
	}
}

type generalResponse struct {
	Errors  []*errorResponse `json:"errors"`
	Success bool             `json:"success"`
	Data    interface{}      `json:"data"`
}

type errorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Scope   string      `json:"scope"`
	Type    int         `json:"type"`
	Data    interface{} `json:"data"`
}

type ErrOption func(*errorResponse)

func WithErrorType(errType int) ErrOption {
	return func(err *errorResponse) {
		err.Type = errType
	}
}

func WithErrorScope(scope string) ErrOption {
	return func(err *errorResponse) {
		err.Scope = scope
	}
}

func (r *ResponseWriter) logger() *log.Entry {
	if r.Logger == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return r.Logger
}

func (r *ResponseWriter) writeJSONResponse(code int, errors []*errorResponse, data interface{}) {
	response := &generalResponse{Errors: errors, Success: errors == nil, Data: data}
	r.writePlainJSONResponse(code, response)
}

func (r *ResponseWriter) writePlainJSONResponse(statusCode int, data interface{}) {
	b, err := json.Marshal(data)
	if err != nil {
		r.Writer.WriteHeader(http.StatusInternalServerError)
		r.Writer.Write([]byte(fmt.Sprintf("unexpected error: %v", err)))
		return
	}

	r.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	r.Writer.WriteHeader(statusCode)

	if _, err := r.Writer.Write(b); err != nil {
		r.logger().WithField("status_code", statusCode).Warn("could not write response")
	}
}

// WriteJSON writes data as the response body. Error responses without data
// get a {"message": message} body.
func (r *ResponseWriter) WriteJSON(statusCode int, data interface{}, err error, message string) {
	fields := make(log.Fields)
	fields["status_code"] = statusCode
	if statusCode >= 200 && statusCode <= 299 {
		r.logger().WithFields(fields).Info("success")
	}
	if statusCode >= 300 {
		if data == nil {
			data = map[string]interface{}{
				"message": message,
			}
		}
		if err == nil {
			err = errors.New(message)
		}
		fields["errors"] = data
		r.logger().WithFields(fields).Error(err)
	}
	if statusCode == http.StatusNoContent {
		r.Writer.WriteHeader(statusCode)
		return
	}
	r.writePlainJSONResponse(statusCode, data)
}

// Write is WriteJSON with a message translated to the request language.
func (r *ResponseWriter) Write(statusCode int, data interface{}, err error, message *NewRM) {
	r.WriteJSON(statusCode, data, err, message.In(r.Language))
}

// GetRequestLanguage picks the response language from Accept-Language.
func (r *ResponseWriter) GetRequestLanguage(req *http.Request) string {
	r.Language = Language.English
	for _, tag := range strings.Split(req.Header.Get("Accept-Language"), ",") {
		tag = strings.ToLower(strings.TrimSpace(strings.SplitN(tag, ";", 2)[0]))
		tag = strings.SplitN(tag, "-", 2)[0]
		if _, ok := LanguageMap[tag]; ok {
			r.Language = tag
			break
		}
	}
	return r.Language
}

func (r *ResponseWriter) StartLogger(handler string) {
	r.Logger = r.logger().WithField("handler", handler)
}

func (r *ResponseWriter) LogError(err error, message string) {
	entry := r.logger()
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}

func (r *ResponseWriter) LogWarn(err error, message string) {
	entry := r.logger()
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn(message)
}

func (r *ResponseWriter) LogInfo(data interface{}, message string) {
	entry := r.logger()
	if data != nil {
		entry = entry.WithField("data", data)
	}
	entry.Info(message)
}

func (r *ResponseWriter) JSON(code int, data interface{}) {
	r.writeJSONResponse(code, nil, data)
}

func (r *ResponseWriter) String(code int, msg string) {
	r.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	r.Writer.WriteHeader(code)
	if _, err := r.Writer.Write([]byte(msg)); err != nil {
		r.logger().WithField("status_code", code).Warn("could not write response")
	}
}

func (r *ResponseWriter) Error(code int, msg string, opts ...ErrOption) {
	err := &errorResponse{Code: code, Message: msg}
	for _, With := range opts {
		With(err)
	}
	r.writeJSONResponse(code, []*errorResponse{err}, nil)
}
